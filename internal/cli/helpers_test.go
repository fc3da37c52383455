package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/bayes/internal/config"
	"github.com/roach88/bayes/internal/engine"
	"github.com/roach88/bayes/internal/testutil"
)

const rainYAML = "testdata/rain.yaml"

// fakeDial returns a Dialer that hands out fake.
func fakeDial(fake *testutil.FakeEngine) Dialer {
	return func(context.Context, config.EngineConfig) (engine.Conn, error) {
		return fake, nil
	}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// rainEngine scripts the replies of an engine that knows the Rain network.
func rainEngine() *testutil.FakeEngine {
	fake := testutil.NewFakeEngine()
	fake.On("load-file",
		"(network-name Rain)",
		"(node-name Rain)",
		"(node-name Wet)",
		"(node-parent Wet Rain)",
		"(node-vals Rain yes no)",
		"(node-vals Wet yes no)",
		"(node-table Rain 0.2 0.8)",
		"(node-table Wet 0.9 0.1 0.1 0.9)",
		"(load-file-done)",
	)
	fake.On("query",
		"(setval Rain yes 0.3)",
		"(setval Rain no 0.7)",
		"(setval Wet yes 1)",
		"(setval Wet no 0)",
		"(query-done)",
	)
	fake.On("save-file", "(file-save-done)")
	fake.On("algorithms", "(add-algorithm lazy NIL)", "(add-algorithm gibbs samples)")
	return fake
}

// errorEngine fails every load-file.
func errorEngine() *testutil.FakeEngine {
	fake := testutil.NewFakeEngine()
	fake.On("load-file", "(error cannot read file missing.net)")
	return fake
}
