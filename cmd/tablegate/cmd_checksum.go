package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlop3z/tablegate/internal/ast"
	"github.com/hlop3z/tablegate/internal/checksum"
	"github.com/hlop3z/tablegate/internal/cli"
	"github.com/hlop3z/tablegate/internal/engine"
)

// checksumCmd prints the checksum of the definitions. It needs no database.
func checksumCmd() *cobra.Command {
	var tables bool

	cmd := &cobra.Command{
		Use:   "checksum",
		Short: "Print the checksum of the definitions",
		Long: `Validate the definitions and print the checksum migrate compares with the
stored one. No database connection is made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			set, err := e.definitions()
			if err != nil {
				return err
			}
			if err := engine.Validate(set.Tables); err != nil {
				return set.Annotate(err)
			}

			sum, err := checksum.ComputeSum(set.Tables)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, sum.Root)

			if tables {
				t := cli.NewTable("ID", "TABLE", "HASH")
				for _, def := range ast.SortTables(set.Tables) {
					t.AddRow(fmt.Sprint(def.ID), def.Name, shortChecksum(sum.Tables[def.ID]))
				}
				fmt.Fprint(e.out, "\n"+t.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tables, "tables", false, "Also print per-table hashes")
	return cmd
}
