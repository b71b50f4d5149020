package cli

import (
	"github.com/alexanderramin/choicetree/internal/consistency"
	"github.com/alexanderramin/choicetree/internal/service"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Trees  service.TreeService
	Rules  service.RuleService
	Items  service.ItemService
	Sort   service.SortService
	Import service.ImportService

	// AssumeYes confirms every cascading delete without asking.
	AssumeYes bool
	// IsInteractive reports whether a confirmation prompt can be shown.
	// Nil means never.
	IsInteractive func() bool
	// Confirm asks whether a pending cascade may proceed. Nil uses a huh
	// prompt.
	Confirm func(title string, d consistency.Decision) (bool, error)
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	tree string
	yes  bool
}

// NewRootCmd creates the top-level "choicetree" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "choicetree",
		Short:         "Decision tree catalog, rules and reassignment consistency",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Read by cmd/choicetree before the services are wired; registered here
	// so cobra accepts it.
	root.PersistentFlags().String("config", "", "Config file (default ~/.choicetree/config.yaml)")
	root.PersistentFlags().StringVar(&opts.tree, "tree", "", "Tree version (id, id prefix or name; default latest)")
	root.PersistentFlags().BoolVarP(&opts.yes, "yes", "y", false, "Confirm reassignment cascades without asking")

	root.AddCommand(
		newImportCmd(app),
		newTreeCmd(app, opts),
		newSearchCmd(app, opts),
		newRuleCmd(app, opts),
		newItemCmd(app, opts),
		newSortCmd(app, opts),
		newLedgerCmd(app, opts),
	)

	return root
}
