package stream

import (
	"log"

	"LighthouseIS/internal/config"

	"github.com/nats-io/nats.go"
)

// Publisher fans stream lines out to a NATS subject so live consumers (the
// forwarder, archiver side-cars, dashboards) do not have to tail the log
// file. The payload is the formatted line itself: the line layout is the
// stream's one compatibility surface, and re-encoding it would create a
// second schema for the same bytes.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg config.StreamConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish sends one formatted stream line to the configured subject.
func (p *Publisher) Publish(line string) error {
	return p.nc.Publish(p.subject, []byte(line))
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
