package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/bayes/internal/config"
	"github.com/roach88/bayes/internal/engine"
	"github.com/roach88/bayes/internal/protocol"
	"github.com/roach88/bayes/internal/store"
)

// live is one engine conversation driven by a command.
type live struct {
	cfg      *config.Config
	logger   *slog.Logger
	format   *OutputFormatter
	session  *engine.Session
	ctrl     *protocol.Controller
	registry *prometheus.Registry
	store    *store.Store
	recorder *store.Recorder
}

// logListener reports engine info and failures through the logger.
type logListener struct {
	logger *slog.Logger
}

func (l logListener) Info(message string) {
	l.logger.Info("engine", "message", message)
}

func (l logListener) AlgorithmAdded(a protocol.Algorithm) {
	l.logger.Debug("algorithm added", "name", a.Name, "has_param", a.HasParam)
}

func (l logListener) FlowCompleted(f protocol.Flow, token string) {
	l.logger.Debug("flow completed", "flow", f.String(), "token", token)
}

func (l logListener) FlowFailed(err *protocol.EngineError) {
	l.logger.Error("flow failed", "flow", err.Flow.String(), "token", err.Token, "error", err.Message)
}

// startLive loads config, starts the engine and wires session, controller,
// metrics and, when a database is configured, the transcript recorder.
// Errors are already reported through the formatter.
func (o *RootOptions) startLive(ctx context.Context, cmd *cobra.Command) (*live, error) {
	f := o.formatter(cmd)

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	logger := o.logger(cmd.ErrOrStderr(), cfg)

	l := &live{
		cfg:      cfg,
		logger:   logger,
		format:   f,
		registry: prometheus.NewRegistry(),
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(l.registry)),
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeStore, err)
		}
		rec, err := store.NewRecorder(ctx, st, store.Session{
			ID:         uuid.Must(uuid.NewV7()).String(),
			EnginePath: cfg.Engine.Path,
			Label:      cmd.CommandPath(),
		}, store.WithRecorderLogger(logger))
		if err != nil {
			st.Close()
			return nil, f.Fail(ExitCommandError, ErrCodeStore, err)
		}
		l.store = st
		l.recorder = rec
		opts = append(opts, engine.WithTap(rec))
	}

	dial := o.Dial
	if dial == nil {
		dial = dialProcess
	}
	conn, err := dial(ctx, cfg.Engine.Resolved(config.AppDir()))
	if err != nil {
		l.closeStore()
		return nil, f.Fail(ExitCommandError, ErrCodeEngineStart, err)
	}

	l.session = engine.New(conn, nil, opts...)
	l.ctrl = protocol.NewController(l.session,
		protocol.WithLogger(logger),
		protocol.WithListener(logListener{logger: logger}),
		protocol.WithDiff(cfg.Diff),
	)
	l.session.SetHandler(l.ctrl.Handle)
	if l.recorder != nil {
		l.recorder.SetFlowSource(l.ctrl.FlowToken)
	}
	logger.Debug("engine connected", "path", cfg.Engine.Path)
	return l, nil
}

// wait processes engine output until the active flow ends and returns the
// engine's error for it, if any.
func (l *live) wait(ctx context.Context) error {
	if err := l.session.PollUntil(ctx, l.ctrl.Idle); err != nil {
		return l.format.Fail(ExitFailure, ErrCodeEngine, err)
	}
	if err := l.ctrl.Err(); err != nil {
		return l.format.Fail(ExitFailure, ErrCodeEngine, err)
	}
	return nil
}

// settle processes engine output until none arrives for quiet. It is used
// for replies that have no end marker.
func (l *live) settle(ctx context.Context, quiet time.Duration) error {
	for {
		pollCtx, cancel := context.WithTimeout(ctx, quiet)
		err := l.session.Poll(pollCtx)
		cancel()
		switch {
		case err == nil:
			continue
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return nil
		default:
			return l.format.Fail(ExitFailure, ErrCodeEngine, err)
		}
	}
}

// start reports an error returned when starting a flow.
func (l *live) start(err error) error {
	if errors.Is(err, protocol.ErrFlowActive) {
		return l.format.Fail(ExitFailure, ErrCodeFlowActive, err)
	}
	return l.format.Fail(ExitFailure, ErrCodeEngine, err)
}

// close ends the engine session, logs the traffic counters and closes the
// transcript.
func (l *live) close() {
	if err := l.session.Close(); err != nil {
		l.logger.Warn("engine exit", "error", err)
	}
	l.logMetrics()
	if l.recorder != nil {
		if err := l.recorder.Err(); err != nil {
			l.logger.Warn("transcript incomplete", "error", err)
		}
		l.logger.Info("transcript recorded", "session", l.recorder.SessionID(), "db", l.cfg.Store.Path)
	}
	l.closeStore()
}

func (l *live) closeStore() {
	if l.store != nil {
		l.store.Close()
	}
}

func (l *live) logMetrics() {
	families, err := l.registry.Gather()
	if err != nil {
		l.logger.Debug("gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		l.logger.Debug("engine traffic", "metric", mf.GetName(), "value", total)
	}
}

// sessionID returns the transcript session, or "".
func (l *live) sessionID() string {
	if l.recorder == nil {
		return ""
	}
	return l.recorder.SessionID()
}

// result writes data, tagged with the transcript session in JSON output.
func (l *live) result(data any, text func()) error {
	if l.format.Format == "json" {
		return encodeJSON(l.format.Writer, CLIResponse{Status: "ok", Data: data, SessionID: l.sessionID()})
	}
	text()
	return nil
}
