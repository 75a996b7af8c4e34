package stream

import (
	"log"

	"LighthouseIS/internal/config"
	"LighthouseIS/internal/model"

	"github.com/nats-io/nats.go"
)

// EntryHandler is a function that processes a received stream entry.
type EntryHandler func(e model.LogEntry)

// Subscriber consumes stream lines from a NATS subject and hands parsed
// entries to a handler.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to the configured NATS server.
func NewSubscriber(cfg config.StreamConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the configured subject and processes messages with the
// provided handler. Lines that do not parse as stream entries are dropped
// with a log line; a malformed message must never stop the subscription.
func (s *Subscriber) Start(handler EntryHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		entry, ok := model.ParseLine(string(msg.Data))
		if !ok {
			log.Printf("Dropping unparseable stream line: %q", string(msg.Data))
			return
		}
		handler(entry)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for messages...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
