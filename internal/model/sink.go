package model

// Sink is an append-only destination for stream entries. Implementations
// must be safe for concurrent use; every session appends through the same
// sink.
type Sink interface {
	Append(e LogEntry) error
}

// Publisher forwards formatted stream lines to downstream consumers
// (message bus subjects, sockets). Publish failures are reported but never
// propagate into session handling.
type Publisher interface {
	Publish(line string) error
	Close()
}
