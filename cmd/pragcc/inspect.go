package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pragcc/pragcc/internal/annotate"
	"github.com/pragcc/pragcc/internal/code"
)

func newInspectCmd(_ *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect FILE.c",
		Short: "List the functions and for-loops of a C file",
		Long: `List every function with its line span and every for-loop with the index
(nro) and nesting depth used by parallel files. Relative lines count from the
function's first line, starting at 0.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sf, err := code.FromText(cmd.Context(), string(source))
			if err != nil {
				return fmt.Errorf("%s: %s", args[0], annotate.Describe(err))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sf.Outline())
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Function", "Lines", "Loop", "Depth", "Loop lines", "Relative"})
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetAutoWrapText(false)
			for _, f := range sf.Functions() {
				lines := fmt.Sprintf("%d-%d", f.BeginLine, f.EndLine)
				if len(f.Loops) == 0 {
					table.Append([]string{f.Name, lines, "-", "", "", ""})
					continue
				}
				for i, l := range f.Loops {
					name := f.Name
					if i > 0 {
						name, lines = "", ""
					}
					table.Append([]string{
						name,
						lines,
						fmt.Sprintf("%d", l.Index),
						fmt.Sprintf("%d", l.Depth),
						fmt.Sprintf("%d-%d", l.Begin.Absolute, l.End.Absolute),
						fmt.Sprintf("%d-%d", l.Begin.Relative, l.End.Relative),
					})
				}
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outline as JSON")
	return cmd
}
