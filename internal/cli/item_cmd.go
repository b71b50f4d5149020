package cli

import (
	"fmt"

	"github.com/alexanderramin/choicetree/internal/cli/formatter"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/service"
	"github.com/spf13/cobra"
)

func newItemCmd(app *App, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage catalog tree items",
	}

	cmd.AddCommand(
		newItemAddCmd(app, opts),
		newItemDeleteCmd(app, opts),
	)

	return cmd
}

func newItemAddCmd(app *App, opts *rootOptions) *cobra.Command {
	var parentID int64
	var kind, label string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a point or choice under a parent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !domain.ValidItemKinds[kind] {
				return fmt.Errorf("invalid item kind %q", kind)
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}

			id, err := app.Sort.AddItem(cmd.Context(), ws, parentID, domain.ItemKind(kind), label)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s #%d %s under %s\n", kind, id, label, ws.Tree.Label(parentID))
			return nil
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", 0, "Parent item id")
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindChoice), "Item kind: point or choice")
	cmd.Flags().StringVar(&label, "label", "", "Item label")
	_ = cmd.MarkFlagRequired("parent")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func newItemDeleteCmd(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ITEM_ID",
		Short: "Delete an item and its subtree",
		Long: "Delete an item and everything beneath it. Rules referencing the\n" +
			"removed items are updated; attribute reassignments that would be\n" +
			"orphaned are listed and only deleted after confirmation.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item", args[0])
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			res, err := runConfirmed(cmd, app, opts, func(confirm bool) (*service.MutationResult, error) {
				return app.Items.DeleteItem(cmd.Context(), ws, itemID, confirm)
			})
			if err != nil {
				return err
			}
			if res == nil || !res.Applied {
				return nil
			}

			out := cmd.OutOrStdout()
			if res.Decision.Cascade() {
				fmt.Fprint(out, formatter.FormatDecision(res.Decision))
			}
			fmt.Fprint(out, formatter.FormatImpact(res.Impact, ws.Tree))
			return nil
		},
	}
}
