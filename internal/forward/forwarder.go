package forward

import (
	"fmt"
	"log"
	"net"
	"regexp"
	"sync"
	"time"

	"LighthouseIS/internal/aprs"
	"LighthouseIS/internal/config"
	"LighthouseIS/internal/dedup"
	"LighthouseIS/internal/model"
)

// defaultIgnorePatterns drop comment lines and packets that originated on
// the internet side (TCPIP path) rather than over the air; forwarding those
// back out would loop them.
var defaultIgnorePatterns = []string{`^#`, `TCPIP\*`}

// Forwarder replays received packets from the stream to a downstream
// socket, suppressing duplicates with last-seen-within-window semantics:
// the same normalized packet is sent at most once per window, regardless of
// which client delivered it first.
type Forwarder struct {
	downstreamAddr string
	cache          *dedup.LastSeen
	ignore         []*regexp.Regexp

	mu   sync.Mutex
	conn net.Conn

	// Forwarded counts lines actually written downstream.
	forwarded int
}

// New builds a forwarder from config. Unset fields fall back to the 1s
// dedup window and the standard ignore patterns.
func New(cfg config.ForwarderConfig) (*Forwarder, error) {
	window := dedup.DefaultWindow
	if cfg.DedupWindow != "" {
		var err error
		window, err = time.ParseDuration(cfg.DedupWindow)
		if err != nil {
			return nil, fmt.Errorf("invalid dedup_window: %w", err)
		}
	}

	patterns := cfg.IgnorePatterns
	if len(patterns) == 0 {
		patterns = defaultIgnorePatterns
	}
	ignore := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		ignore = append(ignore, re)
	}

	return &Forwarder{
		downstreamAddr: cfg.DownstreamAddr,
		cache:          dedup.NewLastSeen(window),
		ignore:         ignore,
	}, nil
}

// HandleEntry processes one stream entry: non-packet events pass through
// untouched, ignored and duplicate packets are dropped, the rest go
// downstream. Errors are logged, never propagated; a bad downstream must
// not stall the stream subscription.
func (f *Forwarder) HandleEntry(e model.LogEntry) {
	packet, ok := e.PacketText()
	if !ok {
		return
	}
	for _, re := range f.ignore {
		if re.MatchString(packet) {
			log.Printf("Packet ignored: %s", packet)
			return
		}
	}
	if !f.cache.Fresh(aprs.Normalize(packet), time.Now()) {
		log.Printf("Duplicate packet ignored: %s", packet)
		return
	}
	if err := f.send(packet); err != nil {
		log.Printf("Failed to forward packet: %v", err)
		return
	}
	log.Printf("Packet sent to %s: %s", f.downstreamAddr, packet)
}

// Forwarded returns the number of packets written downstream.
func (f *Forwarder) Forwarded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forwarded
}

// send writes the packet to the downstream socket, dialing or redialing as
// needed. One reconnect attempt per packet; the next packet tries again.
func (f *Forwarder) send(packet string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		if err := f.dialLocked(); err != nil {
			return err
		}
	}
	if err := f.writeLocked(packet); err != nil {
		f.conn.Close()
		f.conn = nil
		if err := f.dialLocked(); err != nil {
			return err
		}
		if err := f.writeLocked(packet); err != nil {
			f.conn.Close()
			f.conn = nil
			return err
		}
	}
	f.forwarded++
	return nil
}

func (f *Forwarder) dialLocked() error {
	conn, err := net.DialTimeout("tcp", f.downstreamAddr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to dial downstream %s: %w", f.downstreamAddr, err)
	}
	f.conn = conn
	return nil
}

func (f *Forwarder) writeLocked(packet string) error {
	f.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := f.conn.Write([]byte(packet + "\r\n"))
	return err
}

// Close releases the downstream connection.
func (f *Forwarder) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}
