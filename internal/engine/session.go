package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/bayes/internal/config"
	"github.com/roach88/bayes/internal/sexp"
	"github.com/roach88/bayes/internal/wire"
)

// Handler receives decoded engine events in arrival order.
type Handler func(wire.Event)

// Tap observes protocol traffic. It is called after a command was written
// and before an event is handed to the Handler.
type Tap interface {
	Sent(cmd wire.Command)
	Received(ev wire.Event)
}

// Session is one conversation with a running engine.
type Session struct {
	conn    Conn
	parser  sexp.Parser
	handler Handler
	logger  *slog.Logger
	metrics *Metrics
	tap     Tap

	out    <-chan []byte
	errs   <-chan []byte
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithMetrics records traffic in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithTap registers an observer for every command sent and event received.
func WithTap(t Tap) Option {
	return func(s *Session) {
		s.tap = t
	}
}

// New wraps an already running engine connection.
func New(conn Conn, handler Handler, opts ...Option) *Session {
	s := &Session{
		conn:    conn,
		handler: handler,
		logger:  slog.Default(),
		out:     conn.Output(),
		errs:    conn.Errors(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the engine and returns a session bound to it. A failure to
// launch is reported as ErrStart.
func Start(ctx context.Context, cfg config.EngineConfig, handler Handler, opts ...Option) (*Session, error) {
	p, err := StartProcess(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := New(p, handler, opts...)
	s.logger.Debug("engine started", "path", cfg.Path, "pid", p.Pid())
	return s, nil
}

// SetHandler replaces the event handler. Events already dispatched are not
// replayed.
func (s *Session) SetHandler(h Handler) {
	s.handler = h
}

// Send encodes and writes one command.
func (s *Session) Send(name string, args ...wire.Arg) error {
	return s.SendCommand(wire.NewCommand(name, args...))
}

// SendCommand encodes and writes cmd in a single write. It does not wait
// for any reply.
func (s *Session) SendCommand(cmd wire.Command) error {
	if s.closed {
		return ErrClosed
	}
	text, err := wire.Encode(cmd)
	if err != nil {
		return err
	}

	s.logger.Debug("-> "+strings.TrimSuffix(string(text), "\n"), "command", cmd.Name)

	if _, err := s.conn.Write(text); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Name, err)
	}
	s.metrics.sent(cmd.Name, len(text))
	if s.tap != nil {
		s.tap.Sent(cmd)
	}
	return nil
}

// Pump feeds a chunk of engine output through the parser and dispatches
// every event it completes. It returns the number of events dispatched.
// Incomplete trailing input is kept for the next call.
func (s *Session) Pump(chunk []byte) int {
	s.metrics.read(len(chunk))
	s.logger.Debug("<- "+strings.TrimRight(string(chunk), "\n"), "bytes", len(chunk))

	n := 0
	for _, expr := range s.parser.Feed(chunk) {
		ev, ok := wire.Decode(expr)
		if !ok {
			s.logger.Debug("discarding empty message")
			continue
		}
		n++
		s.metrics.received(ev.Name)
		if s.tap != nil {
			s.tap.Received(ev)
		}
		if s.handler != nil {
			s.handler(ev)
		}
	}
	return n
}

// PumpError surfaces bytes from the engine's stderr as a diagnostic. They
// never produce events.
func (s *Session) PumpError(chunk []byte) {
	s.metrics.stderr()
	s.logger.Warn("engine stderr", "text", strings.TrimRight(string(chunk), "\n"))
}

// Poll waits for the next chunk on either engine stream and pumps it.
//
// It returns ctx.Err() if ctx is done first and ErrExited if the engine's
// output has ended. Cancellation only stops the wait; the engine keeps
// running.
func (s *Session) Poll(ctx context.Context) error {
	for {
		if s.out == nil {
			return ErrExited
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-s.out:
			if !ok {
				s.out = nil
				return ErrExited
			}
			s.Pump(chunk)
			return nil
		case chunk, ok := <-s.errs:
			if !ok {
				// stderr ended; keep waiting on stdout
				s.errs = nil
				continue
			}
			s.PumpError(chunk)
			return nil
		}
	}
}

// PollUntil polls until done reports true.
func (s *Session) PollUntil(ctx context.Context, done func() bool) error {
	for !done() {
		if err := s.Poll(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close sends quit, closes the engine's stdin, pumps any remaining output
// and blocks until the process exits. Further calls return nil.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	if err := s.SendCommand(QuitCommand()); err != nil {
		s.logger.Warn("failed to send quit", "error", err)
	}
	s.closed = true

	if err := s.conn.CloseInput(); err != nil {
		s.logger.Debug("close engine stdin", "error", err)
	}

	for s.out != nil || s.errs != nil {
		select {
		case chunk, ok := <-s.out:
			if !ok {
				s.out = nil
				continue
			}
			s.Pump(chunk)
		case chunk, ok := <-s.errs:
			if !ok {
				s.errs = nil
				continue
			}
			s.PumpError(chunk)
		}
	}

	if err := s.conn.Wait(); err != nil {
		return fmt.Errorf("wait for engine: %w", err)
	}
	s.logger.Debug("engine exited")
	return nil
}
