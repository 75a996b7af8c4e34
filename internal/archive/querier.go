package archive

import (
	"context"
	"fmt"
	"time"

	"LighthouseIS/internal/config"
	"LighthouseIS/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Querier defines the interface for reading archived stream entries. The
// API server depends on this rather than on ClickHouse directly so tests
// can substitute a fixture.
type Querier interface {
	EntriesSince(ctx context.Context, since time.Time) ([]model.LogEntry, error)
	Callsigns(ctx context.Context, since time.Time) ([]string, error)
}

// clickhouseQuerier implements Querier over the packet_log table.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewQuerier creates a querier for the archive database.
func NewQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// EntriesSince returns all stream entries at or after the given instant,
// oldest first.
func (q *clickhouseQuerier) EntriesSince(ctx context.Context, since time.Time) ([]model.LogEntry, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT Timestamp, Origin, Event
		FROM packet_log
		WHERE Timestamp >= ?
		ORDER BY Timestamp
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(&e.Timestamp, &e.Origin, &e.Event); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Callsigns returns the distinct identities claimed in logins at or after
// the given instant.
func (q *clickhouseQuerier) Callsigns(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT DISTINCT Callsign
		FROM packet_log
		WHERE Kind = 'login' AND Callsign != '' AND Callsign != 'unknown' AND Timestamp >= ?
		ORDER BY Callsign
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query callsigns: %w", err)
	}
	defer rows.Close()

	var callsigns []string
	for rows.Next() {
		var cs string
		if err := rows.Scan(&cs); err != nil {
			return nil, fmt.Errorf("failed to scan callsign: %w", err)
		}
		callsigns = append(callsigns, cs)
	}
	return callsigns, nil
}
