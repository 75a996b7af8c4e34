package model

import (
	"regexp"
	"strings"
	"time"
)

// Event descriptions written to the packet stream. The textual layout of a
// stream line is a compatibility surface consumed by external tooling
// (plotting, map viewers, forwarders), so these must not change.
const (
	EventConnected       = "Connection established"
	EventWelcomeSent     = "Sent welcome message"
	EventKeepaliveSent   = "Sent keepalive"
	EventKeepaliveClosed = "Connection closed during keepalive"
	EventClosed          = "Connection closed"

	AuthEventPrefix    = "Received authentication data: "
	LogrespEventPrefix = "Sent logresp for callsign "
	PacketEventPrefix  = "Received packet: "
	DecodeErrorPrefix  = "Decoding error: "
)

// timestampLayout matches the ISO-8601 microsecond timestamps the stream
// has always carried.
const timestampLayout = "2006-01-02T15:04:05.000000"

// LogEntry is one event on the shared packet stream: something received from
// or sent to a single client connection.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin"`
	Event     string    `json:"event"`
}

// Line renders the entry in the stream's wire format:
// {timestamp} - {origin} - {event}.
func (e LogEntry) Line() string {
	return e.Timestamp.Format(timestampLayout) + " - " + e.Origin + " - " + e.Event
}

// PacketText returns the raw packet payload if this entry records a received
// content packet.
func (e LogEntry) PacketText() (string, bool) {
	return strings.CutPrefix(e.Event, PacketEventPrefix)
}

// LogrespCallsign returns the claimed callsign if this entry records a login
// acknowledgment.
func (e LogEntry) LogrespCallsign() (string, bool) {
	return strings.CutPrefix(e.Event, LogrespEventPrefix)
}

var linePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+) - ([^ ]+) - (.+)$`)

// ParseLine parses a stream line back into a LogEntry. Lines that do not
// match the stream format are reported as not ok rather than as errors;
// the stream may legitimately contain foreign lines. Timestamps on the
// stream are host wall clock, so they parse back in the local zone; parsing
// them as UTC would skew every entry by the host's UTC offset.
func ParseLine(line string) (LogEntry, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return LogEntry{}, false
	}
	ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999", m[1], time.Local)
	if err != nil {
		return LogEntry{}, false
	}
	return LogEntry{Timestamp: ts, Origin: m[2], Event: m[3]}, true
}

// PacketRecord is the canonical representation of one received content
// packet. Immutable once created; consumers share it read-only.
type PacketRecord struct {
	Timestamp  time.Time
	Origin     string
	Raw        string
	Normalized string
}

// MatchResult classifies a packet against the dedup window.
type MatchResult int

const (
	// Unique means no equivalent packet from a different origin was seen
	// within the window.
	Unique MatchResult = iota
	// Identical means an equivalent packet from a different origin was seen
	// within the window.
	Identical
)

func (r MatchResult) String() string {
	if r == Identical {
		return "identical"
	}
	return "unique"
}
