package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/bayes/internal/netfile"
	"github.com/roach88/bayes/internal/network"
)

// ValidateResult is the JSON form of a validation run.
type ValidateResult struct {
	Network  string            `json:"network"`
	Nodes    int               `json:"nodes"`
	Valid    bool              `json:"valid"`
	Problems []network.Problem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <network>",
		Short: "Check a network file without an engine",
		Long: `Validate a .yaml, .cue or .sexp network file.

Checks value counts, table sizes, probability ranges, column sums and
cycles. Warnings are printed but only errors fail the command.

Exit codes:
  0 - Network is valid
  1 - Network has errors
  2 - File missing or unreadable`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command, path string) error {
	f := opts.formatter(cmd)

	g, err := loadNetwork(f, path)
	if err != nil {
		return err
	}

	problems := g.Validate()
	result := ValidateResult{
		Network:  g.Name(),
		Nodes:    g.Len(),
		Valid:    !network.HasErrors(problems),
		Problems: problems,
	}

	if !result.Valid {
		err := fmt.Errorf("network %s has errors", g.Name())
		if f.Format == "json" {
			_ = f.Error(ErrCodeInvalid, err.Error(), problems)
		} else {
			for _, p := range problems {
				fmt.Fprintf(f.Writer, "  %s\n", p)
			}
			fmt.Fprintf(f.Writer, "✗ %v\n", err)
		}
		return WrapExitError(ExitFailure, ErrCodeInvalid, err)
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	for _, p := range problems {
		fmt.Fprintf(f.Writer, "  %s\n", p)
	}
	fmt.Fprintf(f.Writer, "✓ %s is valid (%d nodes)\n", g.Name(), g.Len())
	return nil
}

// loadNetwork reads a network file and reports failures through f.
func loadNetwork(f *OutputFormatter, path string) (*network.Network, error) {
	g, err := netfile.Load(path)
	switch {
	case err == nil:
		return g, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, err)
	default:
		return nil, f.Fail(ExitCommandError, ErrCodeNetworkFile, err)
	}
}
