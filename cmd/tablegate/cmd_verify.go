package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/drift"
)

// verifyCmd compares the live catalog with the last applied definitions.
func verifyCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Detect schema changes made outside tablegate",
		Long: `Compare the tables, columns and constraints recorded by the last run with
the live database catalog. Exits with status 1 when they differ.`,
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

			report, err := eng.Verify(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"drift":         report.HasDrift,
					"expected_hash": report.ExpectedHash,
					"actual_hash":   report.ActualHash,
					"summary":       drift.Summarize(report),
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprint(e.out, drift.FormatResult(report))
			}

			if report.HasDrift {
				return alerr.New(alerr.ErrIntrospection, drift.FormatSummary(drift.Summarize(report))).
					With("expected_hash", report.ExpectedHash).
					With("actual_hash", report.ActualHash)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
