package cli

import (
	"fmt"

	"github.com/alexanderramin/choicetree/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newLedgerCmd(app *App, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect attribute reassignments",
	}

	cmd.AddCommand(newLedgerListCmd(app, opts))

	return cmd
}

func newLedgerListCmd(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List attribute reassignments of a tree version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			list, err := app.Trees.Reassignments(cmd.Context(), ws.VersionID())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No attribute reassignments.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatReassignments(list, ws.Tree))
			return nil
		},
	}
}
