package engine

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayes/internal/config"
	"github.com/roach88/bayes/internal/wire"
)

// TestStart_EchoEngine drives cat as a stand-in engine: every command comes
// straight back as an event.
func TestStart_EchoEngine(t *testing.T) {
	path, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}
	ctx := testContext(t)

	rec := &recorder{}
	s, err := Start(ctx, config.EngineConfig{Path: path}, rec.handle)
	require.NoError(t, err)

	require.NoError(t, s.Send("info", wire.String(`a "quoted" \ string`)))
	require.NoError(t, s.PollUntil(ctx, func() bool { return len(rec.events) == 1 }))
	assert.Equal(t, wire.Event{Name: "info", Args: []string{`a "quoted" \ string`}}, rec.events[0])

	// Close sends quit, which cat echoes before exiting on EOF
	require.NoError(t, s.Close())
	assert.Equal(t, []string{"info", "quit"}, rec.names())
}

func TestStart_MissingExecutable(t *testing.T) {
	_, err := Start(context.Background(), config.EngineConfig{Path: "/nonexistent/bayes-cmd"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStart)
	assert.True(t, IsFatal(err))
}

func TestStart_EmptyPath(t *testing.T) {
	_, err := StartProcess(context.Background(), config.EngineConfig{})
	assert.ErrorIs(t, err, ErrStart)
}

func TestProcess_ExitWithoutClose(t *testing.T) {
	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	ctx := testContext(t)

	s, err := Start(ctx, config.EngineConfig{Path: path}, nil)
	require.NoError(t, err)

	// The engine exits on its own; Poll reports it once stdout ends
	err = s.Poll(ctx)
	for err == nil {
		err = s.Poll(ctx)
	}
	assert.ErrorIs(t, err, ErrExited)

	// Close still reaps the process. Writing quit to a dead process may
	// fail; Close only logs that.
	assert.NoError(t, s.Close())
}
