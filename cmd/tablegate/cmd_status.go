package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hlop3z/tablegate/internal/cli"
	"github.com/hlop3z/tablegate/pkg/tablegate"
)

// TimeJSON is the timestamp layout of JSON output.
const TimeJSON = time.RFC3339

// statusCmd shows the stored checksum and the run history.
func statusCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied checksum and run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			eng, closeDB, err := e.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			st, err := eng.Status(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(statusJSON(st))
			}
			fmt.Fprint(e.out, formatStatus(st))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", tablegate.DefaultHistoryLimit, "Number of runs to show")
	return cmd
}

func statusJSON(st *tablegate.Status) map[string]any {
	runs := make([]map[string]any, len(st.History))
	for i, r := range st.History {
		runs[i] = map[string]any{
			"id":                r.ID,
			"applied_at":        r.AppliedAt.Format(TimeJSON),
			"checksum":          r.Checksum,
			"previous_checksum": r.PreviousChecksum,
			"outcome":           r.Outcome,
			"statements":        r.StatementsApplied,
			"run_id":            r.RunID,
		}
	}
	out := map[string]any{
		"applied":           st.Applied(),
		"checksum":          st.Checksum,
		"tables":            st.Tables,
		"last_generated_at": nil,
		"history":           runs,
	}
	if st.Applied() {
		out["last_generated_at"] = st.LastGeneratedAt.Format(TimeJSON)
	}
	return out
}

func formatStatus(st *tablegate.Status) string {
	if !st.Applied() {
		return cli.FormatNote(MsgNotApplied)
	}

	var b strings.Builder
	b.WriteString(cli.FormatKeyValue("checksum", st.Checksum) + "\n")
	b.WriteString(cli.FormatKeyValue("applied", st.LastGeneratedAt.Format(TimeJSON)) + "\n")
	b.WriteString(cli.FormatKeyValue("tables", fmt.Sprint(st.Tables)) + "\n")

	if len(st.History) == 0 {
		return b.String()
	}
	b.WriteString("\n")

	table := cli.NewTable("ID", "APPLIED", "OUTCOME", "STATEMENTS", "CHECKSUM")
	for _, r := range st.History {
		table.AddRow(
			fmt.Sprint(r.ID),
			r.AppliedAt.Format(TimeJSON),
			cli.Badge(r.Outcome),
			fmt.Sprint(r.StatementsApplied),
			shortChecksum(r.Checksum),
		)
	}
	b.WriteString(cli.Section("History", table.String()))
	return b.String()
}
