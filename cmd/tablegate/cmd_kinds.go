package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlop3z/tablegate/internal/cli"
	"github.com/hlop3z/tablegate/internal/kinds"
)

// kindsCmd lists the registered field kinds.
func kindsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List field kinds and their column types",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(kindsJSON())
			}
			cli.SetDefault(cli.ConfigFor(out))
			fmt.Fprint(out, kindsTable().String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// columnType is the default column type of d, or "-" for virtual kinds.
func columnType(d *kinds.Def) string {
	if d.Virtual() {
		return "-"
	}
	return d.SQLType(kinds.Params{})
}

func kindsTable() *cli.Table {
	t := cli.NewTable("KIND", "COLUMN", "DESCRIPTION")
	for _, d := range kinds.All() {
		t.AddRow(string(d.Kind), columnType(d), d.Description)
	}
	return t
}

func kindsJSON() []map[string]any {
	all := kinds.All()
	out := make([]map[string]any, len(all))
	for i, d := range all {
		out[i] = map[string]any{
			"kind":        d.Kind,
			"column":      columnType(d),
			"virtual":     d.Virtual(),
			"description": d.Description,
		}
	}
	return out
}
