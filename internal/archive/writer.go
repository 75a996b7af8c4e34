package archive

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"LighthouseIS/internal/aprs"
	"LighthouseIS/internal/config"
	"LighthouseIS/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS packet_log (
    Timestamp  DateTime64(6),
    Origin     String,
    Event      String,
    Raw        String,
    Normalized String,
    Callsign   String,
    Kind       LowCardinality(String)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, Origin);
`

const defaultFlushInterval = 10 * time.Second

// Writer archives stream entries into ClickHouse. Entries are buffered and
// batch-inserted on an interval; the stream's file sink remains the system
// of record, so a failed flush is logged and retried with the next batch
// rather than surfaced to sessions. Writer implements model.Sink and is
// attached to the stream as a second fan-out target.
type Writer struct {
	conn     driver.Conn
	interval time.Duration

	mu      sync.Mutex
	pending []model.LogEntry

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWriter connects to ClickHouse and ensures the packet_log table exists.
func NewWriter(cfg config.ArchiverConfig) (*Writer, error) {
	conn, err := connect(cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	interval := defaultFlushInterval
	if cfg.FlushInterval != "" {
		interval, err = time.ParseDuration(cfg.FlushInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid flush_interval: %w", err)
		}
	}

	return &Writer{
		conn:     conn,
		interval: interval,
		done:     make(chan struct{}),
	}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Start launches the background flusher.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.flusher()
}

// Stop flushes the remaining buffer and closes the connection.
func (w *Writer) Stop() {
	close(w.done)
	w.wg.Wait()
	if err := w.flush(); err != nil {
		log.Printf("Final archive flush failed: %v", err)
	}
	w.conn.Close()
}

// Append buffers one stream entry for the next batch.
func (w *Writer) Append(e model.LogEntry) error {
	w.mu.Lock()
	w.pending = append(w.pending, e)
	w.mu.Unlock()
	return nil
}

func (w *Writer) flusher() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.flush(); err != nil {
				log.Printf("Archive flush failed: %v", err)
			}
		case <-w.done:
			return
		}
	}
}

func (w *Writer) flush() error {
	w.mu.Lock()
	batchEntries := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batchEntries) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO packet_log")
	if err != nil {
		w.requeue(batchEntries)
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, e := range batchEntries {
		raw, normalized, callsign, kind := deriveColumns(e)
		if err := batch.Append(e.Timestamp, e.Origin, e.Event, raw, normalized, callsign, kind); err != nil {
			w.requeue(batchEntries)
			return fmt.Errorf("failed to append entry to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		w.requeue(batchEntries)
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Archived %d stream entries to ClickHouse", len(batchEntries))
	return nil
}

// requeue puts a failed batch back in front of the buffer so the next flush
// retries it.
func (w *Writer) requeue(entries []model.LogEntry) {
	w.mu.Lock()
	w.pending = append(entries, w.pending...)
	w.mu.Unlock()
}

// deriveColumns precomputes the queryable columns for an entry: the packet
// payload and its normalized key for received packets, the claimed callsign
// for login acknowledgments.
func deriveColumns(e model.LogEntry) (raw, normalized, callsign, kind string) {
	if packet, ok := e.PacketText(); ok {
		return packet, aprs.Normalize(packet), "", "packet"
	}
	if cs, ok := e.LogrespCallsign(); ok {
		return "", "", cs, "login"
	}
	return "", "", "", "event"
}
