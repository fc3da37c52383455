package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayes/internal/testutil"
	"github.com/roach88/bayes/internal/wire"
)

// recorder collects dispatched events.
type recorder struct {
	events []wire.Event
}

func (r *recorder) handle(ev wire.Event) { r.events = append(r.events, ev) }

func (r *recorder) names() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Name
	}
	return out
}

// tapRecorder implements Tap.
type tapRecorder struct {
	sent     []string
	received []string
}

func (t *tapRecorder) Sent(cmd wire.Command)  { t.sent = append(t.sent, cmd.Name) }
func (t *tapRecorder) Received(ev wire.Event) { t.received = append(t.received, ev.Name) }

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSession_SendWritesEncodedCommand(t *testing.T) {
	fake := testutil.NewFakeEngine()
	s := New(fake, nil)

	require.NoError(t, s.LoadFile("rain.net"))
	require.NoError(t, s.Send("set-option", wire.String(OptionDiffCheckPeriod), wire.Int(20)))

	got := fake.Received()
	require.Len(t, got, 2)
	assert.Equal(t, wire.Event{Name: "load-file", Args: []string{"rain.net", "T"}}, got[0])
	assert.Equal(t, wire.Event{Name: "set-option", Args: []string{"diff-check-period", "20"}}, got[1])
}

func TestSession_SendRejectsUnencodable(t *testing.T) {
	fake := testutil.NewFakeEngine()
	s := New(fake, nil)

	err := s.Send("set-option", wire.String("x"), nil)
	require.Error(t, err)
	assert.Empty(t, fake.Received(), "nothing is written when encoding fails")
}

func TestSession_PumpDispatchesInOrder(t *testing.T) {
	rec := &recorder{}
	s := New(testutil.NewFakeEngine(), rec.handle)

	// Several replies in one read, the last one incomplete
	n := s.Pump([]byte("(info \"loading\")(NODE-NAME Rain)\n(node-vals Rain"))
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"info", "node-name"}, rec.names())

	// The continuation completes the carried expression
	n = s.Pump([]byte(" yes no)\n"))
	assert.Equal(t, 1, n)
	require.Len(t, rec.events, 3)
	assert.Equal(t, wire.Event{Name: "node-vals", Args: []string{"Rain", "yes", "no"}}, rec.events[2])
}

func TestSession_PumpDiscardsEmpty(t *testing.T) {
	rec := &recorder{}
	s := New(testutil.NewFakeEngine(), rec.handle)

	n := s.Pump([]byte("() (()) (query-done)"))
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"query-done"}, rec.names())
}

func TestSession_PumpErrorLogsOnly(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	rec := &recorder{}
	s := New(testutil.NewFakeEngine(), rec.handle, WithLogger(logger))

	s.PumpError([]byte("(error \"not an event\")\n"))

	assert.Empty(t, rec.events)
	assert.Contains(t, logs.String(), "engine stderr")
}

func TestSession_PollAndClose(t *testing.T) {
	ctx := testContext(t)
	fake := testutil.NewFakeEngine()
	fake.ChunkSize = 3
	fake.On("algorithms",
		`(add-algorithm "lazy" NIL)`,
		`(add-algorithm "gibbs" "samples")`,
	)

	rec := &recorder{}
	s := New(fake, rec.handle)

	require.NoError(t, s.Algorithms())
	require.NoError(t, s.PollUntil(ctx, func() bool { return len(rec.events) == 2 }))

	assert.Equal(t, wire.Event{Name: "add-algorithm", Args: []string{"lazy", "NIL"}}, rec.events[0])
	assert.Equal(t, wire.Event{Name: "add-algorithm", Args: []string{"gibbs", "samples"}}, rec.events[1])

	require.NoError(t, s.Close())
	assert.Equal(t, []string{"algorithms", "quit"}, fake.ReceivedNames())

	assert.ErrorIs(t, s.Send("algorithms"), ErrClosed)
	assert.NoError(t, s.Close(), "second close is a no-op")
}

func TestSession_CloseDrainsPendingOutput(t *testing.T) {
	fake := testutil.NewFakeEngine()
	fake.Emit("(info \"bye\")\n")
	fake.EmitError("warning: shutting down\n")

	rec := &recorder{}
	s := New(fake, rec.handle)

	require.NoError(t, s.Close())
	assert.Equal(t, []string{"info"}, rec.names())
}

func TestSession_CloseReportsExitError(t *testing.T) {
	fake := testutil.NewFakeEngine()
	fake.ExitErr = errors.New("exit status 3")
	s := New(fake, nil)

	err := s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestSession_PollReportsExit(t *testing.T) {
	ctx := testContext(t)
	fake := testutil.NewFakeEngine()
	s := New(fake, nil)

	fake.Exit()

	err := s.Poll(ctx)
	assert.ErrorIs(t, err, ErrExited)
	assert.True(t, IsFatal(err))

	// Stays exited
	assert.ErrorIs(t, s.Poll(ctx), ErrExited)
}

func TestSession_PollHonoursContext(t *testing.T) {
	fake := testutil.NewFakeEngine()
	s := New(fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsFatal(err))

	// The engine is untouched by cancellation
	fake.On("algorithms", "(add-algorithm a NIL)")
	require.NoError(t, s.Algorithms())
	require.NoError(t, s.Close())
}

func TestSession_SetHandler(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	s := New(testutil.NewFakeEngine(), first.handle)

	s.Pump([]byte("(a)"))
	s.SetHandler(second.handle)
	s.Pump([]byte("(b)"))

	assert.Equal(t, []string{"a"}, first.names())
	assert.Equal(t, []string{"b"}, second.names())
}

func TestSession_MetricsAndTap(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	tap := &tapRecorder{}

	s := New(testutil.NewFakeEngine(), nil, WithMetrics(metrics), WithTap(tap))

	require.NoError(t, s.Algorithms())
	require.NoError(t, s.Algorithms())
	s.Pump([]byte("(query-done)(setval Rain yes 0.3)"))
	s.PumpError([]byte("oops"))

	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.CommandsSent.WithLabelValues("algorithms")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.EventsReceived.WithLabelValues("setval")))
	assert.Equal(t, float64(len("(algorithms )\n")*2), promtest.ToFloat64(metrics.BytesWritten))
	assert.Equal(t, float64(len("(query-done)(setval Rain yes 0.3)")), promtest.ToFloat64(metrics.BytesRead))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.StderrChunks))

	assert.Equal(t, []string{"algorithms", "algorithms"}, tap.sent)
	assert.Equal(t, []string{"query-done", "setval"}, tap.received)

	count, err := promtest.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.sent("x", 1)
		m.read(1)
		m.received("x")
		m.stderr()
	})
}
