package cli

import (
	"fmt"

	"github.com/alexanderramin/choicetree/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a catalog from a YAML file as a new tree version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Import.ImportCatalog(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported tree %s [%s]: %d items, %d rules, %d reassignments\n",
				result.Version.Name, formatter.ShortID(result.Version.ID),
				result.ItemCount, result.RuleCount, result.ReassignmentCount)
			return nil
		},
	}
}
