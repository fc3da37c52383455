package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bayes/internal/netfile"
	"github.com/roach88/bayes/internal/protocol"
	"github.com/roach88/bayes/internal/store"
	"github.com/roach88/bayes/internal/wire"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Session string // empty means the latest session
	List    bool
}

// ReplayOutput is the JSON form of a replay.
type ReplayOutput struct {
	store.ReplayResult
	Label      string                        `json:"label"`
	Flows      []string                      `json:"flows"`
	Network    *netfile.File                 `json:"network,omitempty"`
	Posteriors map[string]map[string]float64 `json:"posteriors,omitempty"`
	Algorithms []protocol.Algorithm          `json:"algorithms,omitempty"`
}

// errNoEngine is returned when a replayed controller tries to send.
var errNoEngine = errors.New("replay: no engine attached")

// transcriptSender is the protocol.Sender of a controller fed from a
// transcript.
type transcriptSender struct{}

func (transcriptSender) SendCommand(wire.Command) error { return errNoEngine }

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild a recorded session from its transcript",
		Long: `Feed a recorded session's commands and events back through a
controller, in recording order, without starting an engine. Prints the
network, posteriors and algorithms the session ended with.

Exit codes:
  0 - Replay succeeded
  1 - Transcript could not be replayed
  2 - Command error (no database, unknown session)

Examples:
  bayes replay --db ./bayes.db --list
  bayes replay --db ./bayes.db
  bayes replay --db ./bayes.db --session 0192... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (default: latest)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded sessions")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	if cfg.Store.Path == "" {
		return f.Fail(ExitCommandError, ErrCodeStore, errors.New("no transcript database: set --db or store.path"))
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer st.Close()

	if opts.List {
		return listSessions(ctx, f, st)
	}

	sess, err := findSession(ctx, st, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("session not found: %q", opts.Session))
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err)
	}

	logger := opts.logger(io.Discard, cfg)
	if opts.Verbose {
		logger = opts.logger(f.GetErrWriter(), cfg)
	}
	ctrl := protocol.NewController(transcriptSender{}, protocol.WithLogger(logger))

	result, err := st.Replay(ctx, sess.ID, ctrl)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeStore, err)
	}
	flows, err := st.ListFlowTokens(ctx, sess.ID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err)
	}

	out := ReplayOutput{
		ReplayResult: result,
		Label:        sess.Label,
		Flows:        flows,
		Algorithms:   ctrl.Algorithms(),
	}
	g := ctrl.Network()
	if g != nil {
		out.Network = netfile.FromNetwork(g)
		out.Posteriors = posteriors(g)
	}

	if f.Format == "json" {
		return f.Success(out)
	}

	w := f.Writer
	fmt.Fprintf(w, "session %s (%s)\n", sess.ID, sess.Label)
	fmt.Fprintf(w, "  %d commands, %d events, %d flows, last seq %d\n",
		result.Commands, result.Events, len(flows), result.LastSeq)
	if g != nil {
		printNetwork(w, g)
		printPosteriors(w, g)
	}
	for _, a := range out.Algorithms {
		fmt.Fprintf(w, "algorithm %s\n", a.Name)
	}
	return nil
}

func findSession(ctx context.Context, st *store.Store, id string) (store.Session, error) {
	if id == "" {
		return st.LatestSession(ctx)
	}
	return st.ReadSession(ctx, id)
}

func listSessions(ctx context.Context, f *OutputFormatter, st *store.Store) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err)
	}
	if f.Format == "json" {
		return f.Success(sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(f.Writer, "No sessions recorded.")
		return nil
	}
	for _, sess := range sessions {
		fmt.Fprintf(f.Writer, "%s\t%s\t%s\n", sess.ID, sess.Label, sess.EnginePath)
	}
	return nil
}
