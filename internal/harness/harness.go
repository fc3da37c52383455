package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/bayes/internal/engine"
	"github.com/roach88/bayes/internal/netfile"
	"github.com/roach88/bayes/internal/protocol"
	"github.com/roach88/bayes/internal/store"
	"github.com/roach88/bayes/internal/testutil"
)

// stepTimeout bounds how long one step may take to drain the fake engine.
const stepTimeout = 5 * time.Second

// Harness is the scenario execution environment: a fake engine, the
// session and controller talking to it, and the store recording them.
type Harness struct {
	store    *store.Store
	recorder *store.Recorder
	fake     *testutil.FakeEngine
	session  *engine.Session
	ctrl     *protocol.Controller
	listener *outcomeListener
	logger   *slog.Logger
}

// outcomeListener collects what the controller reports.
type outcomeListener struct {
	flows []FlowOutcome
	infos []string
}

func (l *outcomeListener) Info(message string) {
	l.infos = append(l.infos, message)
}

func (l *outcomeListener) AlgorithmAdded(protocol.Algorithm) {}

func (l *outcomeListener) FlowCompleted(f protocol.Flow, token string) {
	l.flows = append(l.flows, FlowOutcome{Flow: f.String(), Token: token})
}

func (l *outcomeListener) FlowFailed(err *protocol.EngineError) {
	l.flows = append(l.flows, FlowOutcome{Flow: err.Flow.String(), Token: err.Token, Error: err.Message})
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a fresh fake
// engine. The returned error is for infrastructure failures only; step
// and assertion failures are reported in the result.
//
// Execution flow:
// 1. Create store, recorder, fake engine, session and controller
// 2. Load the scenario's offline network, if any
// 3. Execute steps, processing engine replies after each
// 4. Close the session and read back the transcript
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(ctx, st, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()

	if scenario.Network != "" {
		g, err := netfile.Load(scenario.Network)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario network: %w", err)
		}
		h.ctrl.SetNetwork(g)
	}

	for i, step := range scenario.Steps {
		stepErr := h.execute(step)
		if err := h.settle(ctx); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		checkStepError(result, i, step, stepErr)
	}

	if err := h.session.Close(); err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}
	if err := h.recorder.Err(); err != nil {
		return nil, fmt.Errorf("failed to record transcript: %w", err)
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(ctx context.Context, st *store.Store, scenario *Scenario) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	rec, err := store.NewRecorder(ctx, st,
		store.Session{ID: scenario.Name, EnginePath: "fake", Label: scenario.Description},
		store.WithRecorderLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}

	fake := testutil.NewFakeEngine()
	fake.ChunkSize = scenario.ChunkSize
	for name, replies := range scenario.Engine {
		fake.On(name, replies...)
	}

	session := engine.New(fake, nil, engine.WithTap(rec), engine.WithLogger(logger))
	listener := &outcomeListener{}
	ctrl := protocol.NewController(session,
		protocol.WithListener(listener),
		protocol.WithLogger(logger),
		protocol.WithFlowGenerator(testutil.NewSequenceGenerator(scenario.FlowToken)),
		protocol.WithDiff(scenario.Diff),
	)
	session.SetHandler(ctrl.Handle)
	rec.SetFlowSource(ctrl.FlowToken)

	return &Harness{
		store:    st,
		recorder: rec,
		fake:     fake,
		session:  session,
		ctrl:     ctrl,
		listener: listener,
		logger:   logger,
	}, nil
}

// execute performs one step's action.
func (h *Harness) execute(step Step) error {
	switch {
	case step.Open != "":
		_, err := h.ctrl.Open(step.Open)
		return err
	case step.Save != "":
		_, err := h.ctrl.Save(step.Save)
		return err
	case step.Query != nil:
		opts := protocol.QueryOptions{
			Algorithm: step.Query.Algorithm,
			Redefine:  step.Query.Redefine,
		}
		if step.Query.Param != nil {
			opts.Param = *step.Query.Param
			opts.HasParam = true
		}
		_, err := h.ctrl.Query(opts)
		return err
	case step.Algorithms:
		return h.ctrl.RequestAlgorithms()
	case step.Evidence != nil:
		return h.setEvidence(step.Evidence)
	case step.Emit != "":
		h.fake.Emit(step.Emit + "\n")
		return nil
	}
	return errors.New("step has no action")
}

func (h *Harness) setEvidence(evidence map[string]string) error {
	g := h.ctrl.Network()
	if g == nil {
		return protocol.ErrNoNetwork
	}
	for name, value := range evidence {
		n := g.Node(name)
		if n == nil {
			return fmt.Errorf("evidence: no node %q", name)
		}
		if value == "" {
			n.ClearEvidence()
			continue
		}
		i := n.ValueIndex(value)
		if i < 0 {
			return fmt.Errorf("evidence: node %q has no value %q", name, value)
		}
		if err := n.SetEvidence(i); err != nil {
			return fmt.Errorf("evidence: %w", err)
		}
	}
	return nil
}

// settle processes engine output until nothing is queued. The fake engine
// queues every reply while the command is written, so an empty queue means
// the step's conversation is over.
func (h *Harness) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()
	for h.fake.Pending() > 0 {
		if err := h.session.Poll(ctx); err != nil {
			return err
		}
	}
	return nil
}

func checkStepError(result *Result, i int, step Step, err error) {
	action, _ := step.action()
	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): %v", i, action, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got none", i, action, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got %q", i, action, step.ExpectError, err))
	}
}

// collect fills the result from the transcript and the controller.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	messages, err := h.store.ReadMessages(ctx, h.recorder.SessionID())
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	for _, m := range messages {
		result.Trace = append(result.Trace, TraceEvent{
			Seq:       m.Seq,
			Direction: string(m.Direction),
			FlowToken: m.FlowToken,
			Name:      m.Name,
			Args:      m.Args,
			Text:      m.Text,
		})
	}

	result.Flows = append(result.Flows, h.listener.flows...)
	result.Infos = h.listener.infos
	result.Algorithms = h.ctrl.Algorithms()

	if g := h.ctrl.Network(); g != nil {
		result.Network = netfile.FromNetwork(g)
		result.Posteriors = make(map[string][]float64, g.Len())
		for _, n := range g.Nodes() {
			result.Posteriors[n.Name()] = n.Posteriors()
		}
	}
	return nil
}
