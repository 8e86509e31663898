package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hlop3z/tablegate/internal/cli"
	"github.com/hlop3z/tablegate/pkg/tablegate"
)

// migrateCmd applies the definitions to the database.
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply definition changes to the database",
		Long: `Bring the database schema in line with the definitions.

The run is skipped when the definitions match the last applied checksum.
Otherwise every statement runs in one transaction under an advisory lock,
so concurrent starts of the same service migrate once. Any failure rolls
the whole run back and exits with status 1.`,
		Example: `  # Apply the definitions in ./tables
  tablegate migrate

  # Use a single file and wait at most a minute for the lock
  tablegate migrate -f schema.yaml --lock-wait 1m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			set, err := e.definitions()
			if err != nil {
				return err
			}
			eng, closeDB, err := e.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			res, err := eng.Migrate(cmd.Context(), set.Tables)
			if err != nil {
				return set.Annotate(err)
			}
			fmt.Fprint(e.out, formatResult(res, true))
			return nil
		},
	}
	return cmd
}

// formatResult renders a Migrate or Plan result.
func formatResult(res *tablegate.Result, applied bool) string {
	if res.Skipped {
		return cli.FormatSuccess(MsgUpToDate) + cli.FormatNote(MsgNoChanges)
	}

	var out string
	if applied {
		out += cli.Badge(res.Outcome) + " " + cli.Highlight(shortChecksum(res.Checksum))
		if res.Summary != "" {
			out += "  " + res.Summary
		}
		out += "\n"
	}

	list := cli.NewList()
	for _, r := range res.Renames {
		list.AddSuccess(fmt.Sprintf("renamed %s %s -> %s", r.Scope, r.OldName, r.NewName))
	}
	for _, w := range res.Warnings {
		list.AddWarning(w)
	}
	if len(res.Renames)+len(res.Warnings) > 0 {
		out += list.String()
	}

	if !applied {
		if len(res.Statements) == 0 {
			return out + cli.FormatNote(MsgNoStatements)
		}
		for _, stmt := range res.Statements {
			out += cli.SQL(stmt) + ";\n\n"
		}
		if res.Summary != "" {
			out += cli.Dim(res.Summary) + "\n"
		}
		return out
	}

	out += cli.FormatKeyValue("statements", fmt.Sprint(len(res.Statements))) + "\n"
	out += cli.FormatKeyValue("duration", res.Duration.Round(time.Millisecond).String()) + "\n"
	if res.RunID != "" {
		out += cli.FormatKeyValue("run", res.RunID) + "\n"
	}
	return out
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
