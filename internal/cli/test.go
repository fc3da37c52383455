package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bayes/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios>...",
		Short: "Run protocol scenarios against a scripted engine",
		Long: `Run scenario files against a scripted fake engine and check their
assertions. Each argument is a scenario file or a directory of them.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  bayes test ./scenarios
  bayes test ./scenarios --filter "rain_*"
  bayes test ./scenarios/load_error.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)

	var paths []string
	for _, arg := range args {
		found, err := harness.FindScenarios(arg)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, err)
		}
		for _, path := range found {
			ok, err := matchScenario(path, opts.Filter)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, err)
			}
			if ok {
				paths = append(paths, path)
			}
		}
	}

	result, err := harness.RunSuite(cmd.Context(), paths)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	if f.Format == "json" {
		if result.Failed > 0 {
			err := fmt.Errorf("%d scenario(s) failed", result.Failed)
			_ = f.Error(ErrCodeGeneric, err.Error(), result)
			return WrapExitError(ExitFailure, ErrCodeGeneric, err)
		}
		return f.Success(result)
	}

	w := f.Writer
	if result.TotalScenarios == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	for _, failure := range result.Failures {
		name := failure.Name
		if name == "" {
			name = filepath.Base(failure.ScenarioPath)
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, line := range strings.Split(strings.TrimRight(failure.Error, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.TotalScenarios)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// matchScenario reports whether the scenario file name, without extension,
// matches filter. An empty filter matches everything.
func matchScenario(path, filter string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	base := filepath.Base(path)
	matched, err := filepath.Match(filter, strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return false, fmt.Errorf("invalid filter pattern: %w", err)
	}
	return matched, nil
}
