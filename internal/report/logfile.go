package report

import (
	"bufio"
	"fmt"
	"os"

	"LighthouseIS/internal/model"
)

// maxLineBytes bounds a single stream line; packets are short but the log
// may contain foreign lines.
const maxLineBytes = 64 * 1024

// ReadLog loads all parseable stream entries from a log file, preserving
// file order. Lines that do not match the stream format are skipped; the
// log is append-only and may interleave output from other tooling.
func ReadLog(path string) ([]model.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var entries []model.LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		if entry, ok := model.ParseLine(scanner.Text()); ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, nil
}
