package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/bayes/internal/sexp"
	"github.com/roach88/bayes/internal/wire"
)

// Recorder writes a session's traffic to the store as it happens. It
// implements engine.Tap.
//
// The tap methods cannot return errors, so the first write failure is kept
// and reported by Err; later messages are still attempted.
type Recorder struct {
	store   *Store
	session string
	seq     int64
	flow    func() string
	logger  *slog.Logger
	err     error
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithFlowSource tags every message with the flow token f returns at the
// time it is recorded.
func WithFlowSource(f func() string) RecorderOption {
	return func(r *Recorder) {
		r.flow = f
	}
}

// WithRecorderLogger sets the logger. Default: slog.Default().
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = l
	}
}

// NewRecorder registers sess and returns a recorder appending to it. An
// existing session is continued after its last message.
func NewRecorder(ctx context.Context, s *Store, sess Session, opts ...RecorderOption) (*Recorder, error) {
	if err := s.WriteSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}
	last, err := s.GetLastSeq(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}

	r := &Recorder{
		store:   s,
		session: sess.ID,
		seq:     last,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetFlowSource replaces the flow token source. The controller that owns
// the flows is usually created after the session it records.
func (r *Recorder) SetFlowSource(f func() string) {
	r.flow = f
}

// SessionID returns the recorded session's ID.
func (r *Recorder) SessionID() string { return r.session }

// Err returns the first write failure, or nil.
func (r *Recorder) Err() error { return r.err }

// Sent records an outgoing command with its exact wire text.
func (r *Recorder) Sent(cmd wire.Command) {
	text := cmd.String()
	var args []string
	if exprs, err := sexp.ParseAll([]byte(text)); err == nil && len(exprs) == 1 {
		if ev, ok := wire.Decode(exprs[0]); ok {
			args = ev.Args
		}
	}
	r.write(Message{
		Direction: DirectionOut,
		Name:      cmd.Name,
		Args:      args,
		Text:      text,
	})
}

// Received records an incoming event.
func (r *Recorder) Received(ev wire.Event) {
	r.write(Message{
		Direction: DirectionIn,
		Name:      ev.Name,
		Args:      ev.Args,
		Text:      ev.String(),
	})
}

func (r *Recorder) write(msg Message) {
	r.seq++
	msg.SessionID = r.session
	msg.Seq = r.seq
	if r.flow != nil {
		msg.FlowToken = r.flow()
	}

	if err := r.store.WriteMessage(context.Background(), msg); err != nil {
		r.logger.Error("failed to record message", "seq", msg.Seq, "name", msg.Name, "error", err)
		if r.err == nil {
			r.err = err
		}
	}
}
