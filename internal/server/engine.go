package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"LighthouseIS/internal/config"
	"LighthouseIS/internal/model"
)

// Defaults for handshake and liveness timing when the config leaves them
// unset. The keepalive interval and login turnaround match what clients of
// the original endpoint expect.
const (
	defaultKeepaliveInterval = 60 * time.Second
	defaultReadTimeout       = 90 * time.Second
	defaultLoginAckDelay     = 500 * time.Millisecond
	defaultDrainTimeout      = 5 * time.Second
	defaultGreeting          = "# Welcome to APRS-IS (fake server)"
	defaultServerName        = "1.0"
)

// settings is the resolved per-session configuration.
type settings struct {
	greeting          string
	serverName        string
	keepaliveInterval time.Duration
	readTimeout       time.Duration
	loginAckDelay     time.Duration
}

// Engine accepts client connections and drives one Session per connection.
// No session may block another: each gets its own receive goroutine and
// keepalive goroutine, and a failure inside one session never reaches the
// listener or its siblings.
type Engine struct {
	listenAddr   string
	set          settings
	drainTimeout time.Duration
	sink         model.Sink

	ln       net.Listener
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// NewEngine builds an engine from config, applying defaults for unset
// timing fields. Duration strings that fail to parse are configuration
// errors.
func NewEngine(cfg config.ServerConfig, sink model.Sink) (*Engine, error) {
	set := settings{
		greeting:          cfg.Greeting,
		serverName:        cfg.ServerName,
		keepaliveInterval: defaultKeepaliveInterval,
		readTimeout:       defaultReadTimeout,
		loginAckDelay:     defaultLoginAckDelay,
	}
	if set.greeting == "" {
		set.greeting = defaultGreeting
	}
	if set.serverName == "" {
		set.serverName = defaultServerName
	}

	var err error
	if set.keepaliveInterval, err = durationOrDefault(cfg.KeepaliveInterval, defaultKeepaliveInterval); err != nil {
		return nil, fmt.Errorf("invalid keepalive_interval: %w", err)
	}
	if set.readTimeout, err = durationOrDefault(cfg.ReadTimeout, defaultReadTimeout); err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}
	if set.loginAckDelay, err = durationOrDefault(cfg.LoginAckDelay, defaultLoginAckDelay); err != nil {
		return nil, fmt.Errorf("invalid login_ack_delay: %w", err)
	}
	drain, err := durationOrDefault(cfg.DrainTimeout, defaultDrainTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid drain_timeout: %w", err)
	}

	return &Engine{
		listenAddr:   cfg.ListenAddr,
		set:          set,
		drainTimeout: drain,
		sink:         sink,
		done:         make(chan struct{}),
		sessions:     make(map[*Session]struct{}),
	}, nil
}

func durationOrDefault(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// Start binds the listener and launches the accept loop.
func (e *Engine) Start() error {
	ln, err := net.Listen("tcp", e.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", e.listenAddr, err)
	}
	e.ln = ln

	e.appendServerEvent(fmt.Sprintf("APRS-IS relay listening on %s", ln.Addr()))

	e.wg.Add(1)
	go e.acceptLoop()
	return nil
}

// Addr returns the bound listener address.
func (e *Engine) Addr() net.Addr {
	return e.ln.Addr()
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Stop closes the listener, signals every session to close, and waits for
// the drain. Safe to call more than once. A session that refuses to die
// within the context (bounded by the drain timeout) is abandoned rather
// than blocking shutdown forever.
func (e *Engine) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() {
		close(e.done)
		if e.ln != nil {
			e.ln.Close()
		}

		e.mu.Lock()
		for s := range e.sessions {
			s.Close()
		}
		e.mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(ctx, e.drainTimeout)
	defer cancel()

	drained := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine drain timed out: %w", ctx.Err())
	}
}

func (e *Engine) acceptLoop() {
	defer e.wg.Done()
	for {
		conn, err := e.ln.Accept()
		if err != nil {
			select {
			case <-e.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		origin := originOf(conn.RemoteAddr())
		s := newSession(conn, origin, e.sink, e.set)

		e.mu.Lock()
		e.sessions[s] = struct{}{}
		e.mu.Unlock()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			defer func() {
				e.mu.Lock()
				delete(e.sessions, s)
				e.mu.Unlock()
			}()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Session %s panicked: %v", origin, r)
					s.Close()
				}
			}()
			s.log(model.EventConnected)
			s.run()
		}()
	}
}

func (e *Engine) appendServerEvent(event string) {
	err := e.sink.Append(model.LogEntry{
		Timestamp: time.Now(),
		Origin:    "Server",
		Event:     event,
	})
	if err != nil {
		log.Printf("Failed to append server event: %v", err)
	}
}

// originOf extracts the client IP from a remote address; the port varies per
// connection and is not part of a client's identity on the stream.
func originOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
