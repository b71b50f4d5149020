package cli

import (
	"fmt"

	"github.com/alexanderramin/choicetree/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newSortCmd(app *App, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Reorder points and choices",
	}

	cmd.AddCommand(newSortMoveCmd(app, opts))

	return cmd
}

func newSortMoveCmd(app *App, opts *rootOptions) *cobra.Command {
	var parentID int64
	var position int

	cmd := &cobra.Command{
		Use:   "move ITEM_ID",
		Short: "Move a point or choice to a position, optionally under a new parent",
		Long: "Move a point or choice to a 1-based position among its siblings.\n" +
			"With --parent the item moves under another parent of the same level;\n" +
			"both sibling lists are renumbered and only changed items are saved.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item", args[0])
			if err != nil {
				return err
			}
			if position < 1 {
				return fmt.Errorf("--to must be 1 or greater")
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}

			target := parentID
			if target == 0 {
				ref, ok := ws.Tree.Lookup(itemID)
				if !ok {
					return fmt.Errorf("item %d not found", itemID)
				}
				if p := ws.Tree.Parent(ref); p >= 0 {
					target = ws.Tree.Node(p).ID
				}
			}

			batch, err := app.Sort.Move(cmd.Context(), ws, itemID, target, position-1)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSortBatch(batch))
			return nil
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", 0, "New parent id (default: current parent)")
	cmd.Flags().IntVar(&position, "to", 1, "1-based target position")

	return cmd
}
