package sink

import (
	"fmt"
	"log"
	"os"
	"sync"

	"LighthouseIS/internal/model"
)

// DefaultRecentCapacity matches the bound the dashboard tooling has always
// assumed for the recent-packet window.
const DefaultRecentCapacity = 100

// FileSink is the append-only packet stream: every session event becomes one
// formatted line in the log file. It also keeps a bounded ring of recent
// entries for dashboards and optionally fans each line out to a publisher
// and to the console.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	ring *Ring
	pub  model.Publisher
	echo bool
}

// NewFileSink opens (or creates) the log file for appending.
func NewFileSink(path string, ring *Ring, pub model.Publisher, echo bool) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &FileSink{file: f, ring: ring, pub: pub, echo: echo}, nil
}

// Append formats the entry and writes it to the log file, the ring, and the
// publisher. Publish failures are logged and do not fail the append: the
// file is the system of record, the bus is best-effort fan-out.
func (s *FileSink) Append(e model.LogEntry) error {
	line := e.Line()

	s.mu.Lock()
	_, err := s.file.WriteString(line + "\n")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	if s.ring != nil {
		s.ring.Add(e)
	}
	if s.pub != nil {
		if perr := s.pub.Publish(line); perr != nil {
			log.Printf("Failed to publish stream line: %v", perr)
		}
	}
	if s.echo {
		log.Println(line)
	}
	return nil
}

// Close closes the underlying log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
