package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/bayes/internal/netfile"
	"github.com/roach88/bayes/internal/network"
	"github.com/roach88/bayes/internal/protocol"
)

// defaultQuiet is how long algorithms waits for further replies.
const defaultQuiet = 500 * time.Millisecond

// NewAlgorithmsCommand creates the algorithms command.
func NewAlgorithmsCommand(rootOpts *RootOptions) *cobra.Command {
	var quiet time.Duration

	cmd := &cobra.Command{
		Use:   "algorithms",
		Short: "List the engine's inference algorithms",
		Long: `Ask the engine for its inference algorithms.

The engine sends no end marker, so replies are collected until none
arrives for --quiet.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := rootOpts.startLive(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer l.close()

			if err := l.ctrl.RequestAlgorithms(); err != nil {
				return l.start(err)
			}
			if err := l.settle(cmd.Context(), quiet); err != nil {
				return err
			}

			algs := l.ctrl.Algorithms()
			return l.result(algs, func() {
				for _, a := range algs {
					if a.HasParam {
						fmt.Fprintf(l.format.Writer, "%s <param>\n", a.Name)
					} else {
						fmt.Fprintln(l.format.Writer, a.Name)
					}
				}
			})
		},
	}

	cmd.Flags().DurationVar(&quiet, "quiet", defaultQuiet, "stop after no reply for this long")
	return cmd
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "open <file>",
		Short: "Load a network file through the engine",
		Long: `Ask the engine to read a network file in any format it understands and
print the network it streams back.

With --out the network is also written as .yaml, .cue or .sexp.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := rootOpts.startLive(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer l.close()

			if _, err := l.ctrl.Open(args[0]); err != nil {
				return l.start(err)
			}
			if err := l.wait(cmd.Context()); err != nil {
				return err
			}

			g := l.ctrl.Network()
			if out != "" {
				if err := netfile.Save(out, g); err != nil {
					return l.format.Fail(ExitCommandError, ErrCodeWriteFailed, err)
				}
				l.format.VerboseLog("wrote %s", out)
			}
			return l.result(netfile.FromNetwork(g), func() {
				printNetwork(l.format.Writer, g)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the network to this file")
	return cmd
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <network> <out>",
		Short: "Save a network file through the engine",
		Long: `Send a .yaml, .cue or .sexp network to the engine and ask it to write
the network to <out> in its own file format.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := netfile.Load(args[0])
			if err != nil {
				return rootOpts.formatter(cmd).Fail(ExitCommandError, ErrCodeNetworkFile, err)
			}

			l, err := rootOpts.startLive(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer l.close()

			l.ctrl.SetNetwork(g)
			if _, err := l.ctrl.Save(args[1]); err != nil {
				return l.start(err)
			}
			if err := l.wait(cmd.Context()); err != nil {
				return err
			}

			data := map[string]string{"network": g.Name(), "path": args[1]}
			return l.result(data, func() {
				fmt.Fprintf(l.format.Writer, "✓ Saved %s to %s\n", g.Name(), args[1])
			})
		},
	}
}

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Algorithm string
	Param     int
	Evidence  []string // Node=value
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <network>",
		Short: "Run inference and print posteriors",
		Long: `Query the engine for posterior distributions given evidence.

A .yaml, .cue or .sexp network is sent to the engine in full before the
query, together with the diff options from the config. Any other file is
loaded by the engine itself first.

Examples:
  bayes query rain.yaml --algorithm lazy --evidence Wet=yes
  bayes query rain.net --algorithm gibbs --param 500`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Algorithm, "algorithm", "a", "", "inference algorithm (required)")
	cmd.Flags().IntVarP(&opts.Param, "param", "p", 0, "algorithm parameter")
	cmd.Flags().StringArrayVarP(&opts.Evidence, "evidence", "e", nil, "observed value as Node=value (repeatable)")
	_ = cmd.MarkFlagRequired("algorithm")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, path string) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	var offline *network.Network
	if _, err := netfile.FormatOf(path); err == nil {
		g, err := netfile.Load(path)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNetworkFile, err)
		}
		offline = g
	}

	l, err := opts.startLive(ctx, cmd)
	if err != nil {
		return err
	}
	defer l.close()

	if offline != nil {
		l.ctrl.SetNetwork(offline)
	} else {
		if _, err := l.ctrl.Open(path); err != nil {
			return l.start(err)
		}
		if err := l.wait(ctx); err != nil {
			return err
		}
	}

	g := l.ctrl.Network()
	if err := applyEvidence(g, opts.Evidence); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err)
	}

	q := protocol.QueryOptions{
		Algorithm: opts.Algorithm,
		Param:     opts.Param,
		HasParam:  cmd.Flags().Changed("param"),
		Redefine:  offline != nil,
	}
	if _, err := l.ctrl.Query(q); err != nil {
		return l.start(err)
	}
	if err := l.wait(ctx); err != nil {
		return err
	}

	return l.result(posteriors(g), func() {
		printPosteriors(l.format.Writer, g)
	})
}

// applyEvidence sets Node=value observations on g.
func applyEvidence(g *network.Network, evidence []string) error {
	for _, e := range evidence {
		name, value, ok := strings.Cut(e, "=")
		if !ok {
			return fmt.Errorf("evidence %q: want Node=value", e)
		}
		n := g.Node(strings.TrimSpace(name))
		if n == nil {
			return fmt.Errorf("evidence %q: no node %q", e, name)
		}
		i := n.ValueIndex(strings.TrimSpace(value))
		if i < 0 {
			return fmt.Errorf("evidence %q: node %s has no value %q", e, n.Name(), value)
		}
		if err := n.SetEvidence(i); err != nil {
			return fmt.Errorf("evidence %q: %w", e, err)
		}
	}
	return nil
}
