package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayes/internal/network"
	"github.com/roach88/bayes/internal/protocol"
	"github.com/roach88/bayes/internal/wire"
)

// nopSender accepts and drops every command.
type nopSender struct{}

func (nopSender) SendCommand(wire.Command) error { return nil }

func TestReplay_RebuildsSessionState(t *testing.T) {
	s, id := recordedSession(t)

	ctrl := protocol.NewController(nopSender{})
	result, err := s.Replay(context.Background(), id, ctrl)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Commands)
	assert.Equal(t, 13, result.Events)
	assert.Equal(t, int64(18), result.LastSeq)

	g := ctrl.Network()
	require.NotNil(t, g)
	assert.Equal(t, "Rain", g.Name())
	assert.Equal(t, []string{"Rain"}, g.Node("Wet").ParentNames())
	assert.Equal(t, []float64{0.9, 0.1, 0.1, 0.9}, g.Node("Wet").Table())
	assert.Equal(t, []float64{0.3, 0.7}, g.Node("Rain").Posteriors())
	assert.Equal(t, []protocol.Algorithm{{Name: "lazy"}}, ctrl.Algorithms())
	assert.True(t, ctrl.Idle())
}

func TestReplay_Deterministic(t *testing.T) {
	s, id := recordedSession(t)

	snapshot := func() []float64 {
		ctrl := protocol.NewController(nopSender{})
		_, err := s.Replay(context.Background(), id, ctrl)
		require.NoError(t, err)
		var out []float64
		for _, n := range ctrl.Network().Nodes() {
			out = append(out, n.Table()...)
			out = append(out, n.Posteriors()...)
		}
		return out
	}

	assert.Equal(t, snapshot(), snapshot())
}

func TestReplay_EmptySession(t *testing.T) {
	s := createTestStore(t)
	ctrl := protocol.NewController(nopSender{})
	ctrl.SetNetwork(network.New("untouched"))

	result, err := s.Replay(context.Background(), "missing", ctrl)
	require.NoError(t, err)
	assert.Zero(t, result.Commands)
	assert.Equal(t, "untouched", ctrl.Network().Name())
}

func TestReplay_UnreadableCommand(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s-1")

	require.NoError(t, s.WriteMessage(ctx, Message{
		SessionID: "s-1",
		Seq:       1,
		Direction: DirectionOut,
		Name:      "load-file",
		Text:      `(load-file "unterminated`,
	}))

	_, err := s.Replay(ctx, "s-1", protocol.NewController(nopSender{}))
	assert.Error(t, err)
}

func TestReplay_Cancelled(t *testing.T) {
	s, id := recordedSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Replay(ctx, id, protocol.NewController(nopSender{}))
	assert.ErrorIs(t, err, context.Canceled)
}
