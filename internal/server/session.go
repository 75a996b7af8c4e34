package server

import (
	"bufio"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"LighthouseIS/internal/aprs"
	"LighthouseIS/internal/model"
)

// SessionState tracks where a client connection is in the login/stream
// protocol.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAwaitingAuth
	StateAuthenticated
	StateStreaming
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingAuth:
		return "awaiting-auth"
	case StateAuthenticated:
		return "authenticated"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// unknownCallsign is recorded when the login line carries no identity field.
const unknownCallsign = "unknown"

// Session drives one client connection: greeting, login handshake, packet
// streaming, and an independent keepalive timer. The receive loop and the
// keepalive goroutine share only the done channel; neither can block the
// other.
type Session struct {
	conn   net.Conn
	origin string
	sink   model.Sink
	set    settings

	mu       sync.Mutex
	state    SessionState
	callsign string

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newSession(conn net.Conn, origin string, sink model.Sink, set settings) *Session {
	return &Session{
		conn:   conn,
		origin: origin,
		sink:   sink,
		set:    set,
		state:  StateConnecting,
		done:   make(chan struct{}),
	}
}

// State returns the session's current protocol state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Callsign returns the identity claimed during login, or "unknown".
func (s *Session) Callsign() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callsign
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// run executes the session lifecycle. It returns once the connection is
// closed; Close is always called on the way out, and the keepalive goroutine
// is joined before returning.
func (s *Session) run() {
	defer s.wg.Wait()
	defer s.Close()

	s.setState(StateAwaitingAuth)
	if err := s.send(s.set.greeting); err != nil {
		return
	}
	s.log(model.EventWelcomeSent)

	s.wg.Add(1)
	go s.keepalive()

	r := bufio.NewReader(s.conn)

	login, err := s.readLine(r)
	if err != nil {
		return
	}
	s.log(model.AuthEventPrefix + login)

	callsign, ok := aprs.Callsign(login)
	if !ok {
		callsign = unknownCallsign
	}
	s.mu.Lock()
	s.callsign = callsign
	s.state = StateAuthenticated
	s.mu.Unlock()

	// Mimic the upstream network's login turnaround before acknowledging.
	select {
	case <-time.After(s.set.loginAckDelay):
	case <-s.done:
		return
	}
	if err := s.send("# logresp " + callsign + " verified, server " + s.set.serverName); err != nil {
		return
	}
	s.log(model.LogrespEventPrefix + callsign)
	s.setState(StateStreaming)

	for {
		line, err := s.readLine(r)
		if err != nil {
			return
		}
		if !utf8.ValidString(line) {
			// Content-level failure: report it and keep streaming.
			s.log(model.DecodeErrorPrefix + "invalid UTF-8 sequence in packet line")
			continue
		}
		s.log(model.PacketEventPrefix + line)
	}
}

// keepalive sends a heartbeat line on a fixed interval, independent of the
// receive loop. A failed send means the peer is gone; the session closes.
func (s *Session) keepalive() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.set.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.send("# keepalive"); err != nil {
				s.log(model.EventKeepaliveClosed)
				s.Close()
				return
			}
			s.log(model.EventKeepaliveSent)
		case <-s.done:
			return
		}
	}
}

// Close tears the session down exactly once: signals both goroutines,
// releases the socket, and records the closure on the stream.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
		s.setState(StateClosed)
		s.log(model.EventClosed)
	})
}

// send writes one protocol line to the client.
func (s *Session) send(line string) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.set.readTimeout))
	_, err := s.conn.Write([]byte(line + "\r\n"))
	return err
}

// readLine reads one line, bounded by the I/O timeout so a silent peer
// cannot wedge shutdown. Partial data received before a timeout is kept and
// completed on the next iteration. A final unterminated line before EOF is
// delivered before the EOF surfaces.
func (s *Session) readLine(r *bufio.Reader) (string, error) {
	var pending strings.Builder
	for {
		select {
		case <-s.done:
			return "", net.ErrClosed
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(s.set.readTimeout))
		chunk, err := r.ReadString('\n')
		pending.WriteString(chunk)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) && pending.Len() > 0 {
				return strings.TrimRight(pending.String(), "\r\n"), nil
			}
			return "", err
		}
		return strings.TrimRight(pending.String(), "\r\n"), nil
	}
}

// log appends an event for this session to the shared stream.
func (s *Session) log(event string) {
	err := s.sink.Append(model.LogEntry{
		Timestamp: time.Now(),
		Origin:    s.origin,
		Event:     event,
	})
	if err != nil {
		log.Printf("Failed to append stream entry for %s: %v", s.origin, err)
	}
}
