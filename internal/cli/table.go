package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// TableRow is one probability entry in JSON output.
type TableRow struct {
	Offset  int               `json:"offset"`
	Value   string            `json:"value"`
	Parents map[string]string `json:"parents,omitempty"`
	P       float64           `json:"p"`
}

// NewTableCommand creates the table command.
func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "table <network> <node>",
		Short: "Print a node's conditional probability table",
		Long: `Print every entry of a node's table with the parent assignment it
belongs to, in the order it is sent to the engine.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			g, err := loadNetwork(f, args[0])
			if err != nil {
				return err
			}
			n := g.Node(args[1])
			if n == nil {
				return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("network %s has no node %q", g.Name(), args[1]))
			}

			rows := n.Rows()
			if f.Format == "json" {
				out := make([]TableRow, len(rows))
				for i, r := range rows {
					out[i] = TableRow{Offset: r.Offset, Value: r.Value, P: r.P}
					if len(r.ParentNames) > 0 {
						out[i].Parents = make(map[string]string, len(r.ParentNames))
						for j, name := range r.ParentNames {
							out[i].Parents[name] = r.Parents[j]
						}
					}
				}
				return f.Success(out)
			}

			for _, r := range rows {
				given := ""
				if len(r.ParentNames) > 0 {
					parts := make([]string, len(r.ParentNames))
					for j, name := range r.ParentNames {
						parts[j] = name + "=" + r.Parents[j]
					}
					given = " | " + strings.Join(parts, ", ")
				}
				fmt.Fprintf(f.Writer, "P(%s=%s%s) = %s\n", n.Name(), r.Value, given, formatProbability(r.P))
			}
			return nil
		},
	}
}
