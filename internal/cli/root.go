package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/bayes/internal/config"
	"github.com/roach88/bayes/internal/engine"
)

// Dialer starts an engine and returns its connection.
type Dialer func(ctx context.Context, cfg config.EngineConfig) (engine.Conn, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // YAML config file; empty uses defaults
	DB      string // transcript database; overrides store.path

	// Dial starts the engine. Default: an engine child process.
	Dial Dialer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bayes CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Dial: dialProcess}

	cmd := &cobra.Command{
		Use:   "bayes",
		Short: "Bayesian network engine client",
		Long: `Build Bayesian networks and hand loading, saving and inference to an
external reasoning engine over its S-expression protocol.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "transcript database (overrides store.path)")

	// Engine commands
	cmd.AddCommand(NewAlgorithmsCommand(opts))
	cmd.AddCommand(NewOpenCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	// Offline commands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewTableCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func dialProcess(ctx context.Context, cfg config.EngineConfig) (engine.Conn, error) {
	p, err := engine.StartProcess(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// loadConfig reads --config, or the defaults, and applies --db.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.DB != "" {
		cfg.Store.Path = o.DB
	}
	return cfg, nil
}

// logger returns a text logger on w at the configured level; --verbose
// forces debug.
func (o *RootOptions) logger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
