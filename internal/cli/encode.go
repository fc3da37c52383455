package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/bayes/internal/netfile"
)

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		to  string
		out string
	)

	cmd := &cobra.Command{
		Use:   "encode <network>",
		Short: "Convert a network file between formats",
		Long: `Convert a network between .yaml, .cue and .sexp.

The sexp form is the exact load-network command sent to the engine.

Examples:
  bayes encode rain.yaml --to sexp
  bayes encode rain.cue --out rain.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			g, err := loadNetwork(f, args[0])
			if err != nil {
				return err
			}

			if out != "" {
				if err := netfile.Save(out, g); err != nil {
					return f.Fail(ExitCommandError, ErrCodeWriteFailed, err)
				}
				f.VerboseLog("wrote %s", out)
				return nil
			}

			format := netfile.Format(to)
			data, err := netfile.Encode(g, format)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, err)
			}
			if _, err := f.Writer.Write(data); err != nil {
				return f.Fail(ExitCommandError, ErrCodeWriteFailed, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", string(netfile.FormatSexp), "output format (sexp|yaml|cue)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file, format from its extension")
	return cmd
}
