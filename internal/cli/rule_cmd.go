package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/choicetree/internal/cli/formatter"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/rules"
	"github.com/alexanderramin/choicetree/internal/service"
	"github.com/spf13/cobra"
)

func newRuleCmd(app *App, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage rules between tree items",
	}

	cmd.AddCommand(
		newRuleListCmd(app, opts),
		newRuleAddCmd(app, opts),
		newRuleAddMappingCmd(app, opts),
		newRuleEditMappingCmd(app, opts),
		newRuleDeleteMappingCmd(app, opts),
		newRuleDeleteCmd(app, opts),
		newRuleRemoveItemCmd(app, opts),
		newRuleToggleCmd(app, opts),
	)

	return cmd
}

func parseRuleType(s string) (domain.RuleType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "must_have", "must-have", "musthave":
		return domain.RuleMustHave, nil
	case "optional":
		return domain.RuleOptional, nil
	default:
		return 0, fmt.Errorf("invalid rule type %q (want must_have or optional)", s)
	}
}

// ruleItems builds rule items for the given tree item ids, each owned by
// its point: the item itself for points, the parent point for choices.
func ruleItems(ws *service.Workspace, ids []int64, typeID domain.RuleType) []domain.RuleItem {
	items := make([]domain.RuleItem, 0, len(ids))
	for _, id := range ids {
		it := domain.RuleItem{ItemID: id, TypeID: typeID, Label: ws.Tree.Label(id)}
		if ref, ok := ws.Tree.Lookup(id); ok {
			if ws.Tree.Node(ref).Kind == domain.KindPoint {
				it.PointID = id
			} else if parent := ws.Tree.Parent(ref); parent >= 0 {
				it.PointID = ws.Tree.Node(parent).ID
			}
		}
		items = append(items, it)
	}
	return items
}

func lookupRule(ws *service.Workspace, ruleID int64) (domain.Rule, error) {
	rule, ok := ws.Rules.Get(ruleID)
	if !ok {
		return domain.Rule{}, fmt.Errorf("rule %d: %w", ruleID, domain.ErrNotFound)
	}
	return rule, nil
}

func printRuleResult(cmd *cobra.Command, res *service.MutationResult, verb string) {
	if res == nil || !res.Applied {
		return
	}
	out := cmd.OutOrStdout()
	if res.Decision.Cascade() {
		fmt.Fprint(out, formatter.FormatDecision(res.Decision))
	}
	if res.Rule == nil {
		// No rule comes back when the last item went and the rule with it.
		fmt.Fprintln(out, "Deleted rule")
		return
	}
	fmt.Fprintf(out, "%s rule %d (revision %d)\n", verb, res.Rule.ID, res.Rule.Revision)
}

func newRuleListCmd(app *App, opts *rootOptions) *cobra.Command {
	var itemInput, family string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules, optionally those touching one item",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}

			var list []domain.Rule
			switch {
			case itemInput != "":
				itemID, err := parseID("item", itemInput)
				if err != nil {
					return err
				}
				list = ws.Rules.ForItem(itemID)
			case family != "":
				if !domain.ValidRuleFamilies[family] {
					return fmt.Errorf("invalid rule family %q", family)
				}
				list = ws.Rules.Family(domain.RuleFamily(family))
			default:
				list = ws.Rules.All()
			}

			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rules found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRuleList(list, ws.Tree))
			return nil
		},
	}

	cmd.Flags().StringVar(&itemInput, "item", "", "Only rules parented by or referencing this item")
	cmd.Flags().StringVar(&family, "family", "", "Only rules of this family")

	return cmd
}

func newRuleAddCmd(app *App, opts *rootOptions) *cobra.Command {
	var family, option, typeStr string
	var parentID int64
	var itemIDs []int64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a rule",
		Example: "  choicetree rule add --family choice_to_choice --parent 4 --items 7,8\n" +
			"  choicetree rule add --family option_to_choice --option PLAN-OPT-12 --items 4,7 --type optional",
		RunE: func(cmd *cobra.Command, args []string) error {
			typeID, err := parseRuleType(typeStr)
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}

			rule := domain.Rule{
				Family:         domain.RuleFamily(family),
				ParentID:       parentID,
				IntegrationKey: option,
				TypeID:         typeID,
				Items:          ruleItems(ws, itemIDs, typeID),
			}
			res, err := app.Rules.SaveRule(cmd.Context(), ws, rule, false)
			if err != nil {
				return err
			}
			printRuleResult(cmd, res, "Created")
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "Rule family (choice_to_choice, point_to_point, point_to_choice, option_to_choice)")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "Parent choice or point id")
	cmd.Flags().StringVar(&option, "option", "", "Plan option integration key (option rules)")
	cmd.Flags().StringVar(&typeStr, "type", "must_have", "Rule type: must_have or optional")
	cmd.Flags().Int64SliceVar(&itemIDs, "items", nil, "Comma-separated target item ids")
	_ = cmd.MarkFlagRequired("family")
	_ = cmd.MarkFlagRequired("items")

	return cmd
}

func newRuleAddMappingCmd(app *App, opts *rootOptions) *cobra.Command {
	var typeStr string
	var itemIDs []int64

	cmd := &cobra.Command{
		Use:   "add-mapping RULE_ID",
		Short: "Add an alternate mapping to an option rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseID("rule", args[0])
			if err != nil {
				return err
			}
			typeID, err := parseRuleType(typeStr)
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			rule, err := lookupRule(ws, ruleID)
			if err != nil {
				return err
			}

			updated, idx, err := rules.AddMapping(rule, ruleItems(ws, itemIDs, typeID), typeID)
			if err != nil {
				return err
			}
			res, err := app.Rules.SaveRule(cmd.Context(), ws, updated, false)
			if err != nil {
				return err
			}
			printRuleResult(cmd, res, fmt.Sprintf("Added mapping %d to", idx))
			return nil
		},
	}

	cmd.Flags().StringVar(&typeStr, "type", "must_have", "Mapping type: must_have or optional")
	cmd.Flags().Int64SliceVar(&itemIDs, "items", nil, "Comma-separated choice ids")
	_ = cmd.MarkFlagRequired("items")

	return cmd
}

func newRuleEditMappingCmd(app *App, opts *rootOptions) *cobra.Command {
	var mapping int
	var itemIDs []int64

	cmd := &cobra.Command{
		Use:   "edit-mapping RULE_ID",
		Short: "Replace the choices of one mapping of an option rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseID("rule", args[0])
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			rule, err := lookupRule(ws, ruleID)
			if err != nil {
				return err
			}

			// EditMapping keeps the mapping's own type.
			updated, err := rules.EditMapping(rule, mapping, ruleItems(ws, itemIDs, rule.TypeID))
			if err != nil {
				return err
			}
			res, err := runConfirmed(cmd, app, opts, func(confirm bool) (*service.MutationResult, error) {
				return app.Rules.SaveRule(cmd.Context(), ws, updated, confirm)
			})
			if err != nil {
				return err
			}
			printRuleResult(cmd, res, fmt.Sprintf("Edited mapping %d of", mapping))
			return nil
		},
	}

	cmd.Flags().IntVar(&mapping, "mapping", 0, "Mapping index to edit")
	cmd.Flags().Int64SliceVar(&itemIDs, "items", nil, "Comma-separated choice ids the mapping should hold")
	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("items")

	return cmd
}

func newRuleDeleteMappingCmd(app *App, opts *rootOptions) *cobra.Command {
	var mapping int

	cmd := &cobra.Command{
		Use:   "delete-mapping RULE_ID",
		Short: "Delete one alternate mapping of an option rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseID("rule", args[0])
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}
			rule, err := lookupRule(ws, ruleID)
			if err != nil {
				return err
			}

			updated, _, err := rules.DeleteMapping(rule, mapping)
			if err != nil {
				return err
			}
			res, err := runConfirmed(cmd, app, opts, func(confirm bool) (*service.MutationResult, error) {
				if len(updated.Items) == 0 {
					return app.Rules.DeleteRule(cmd.Context(), ws, ruleID, confirm)
				}
				return app.Rules.SaveRule(cmd.Context(), ws, updated, confirm)
			})
			if err != nil {
				return err
			}
			printRuleResult(cmd, res, "Updated")
			return nil
		},
	}

	cmd.Flags().IntVar(&mapping, "mapping", 0, "Mapping index to delete")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}

func newRuleDeleteCmd(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete RULE_ID",
		Short: "Delete a rule and, when confirmed, its orphaned reassignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseID("rule", args[0])
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}

			res, err := runConfirmed(cmd, app, opts, func(confirm bool) (*service.MutationResult, error) {
				return app.Rules.DeleteRule(cmd.Context(), ws, ruleID, confirm)
			})
			if err != nil {
				return err
			}
			printRuleResult(cmd, res, "")
			return nil
		},
	}
}

func newRuleRemoveItemCmd(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item RULE_ID ITEM_ID",
		Short: "Remove one item from a rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseID("rule", args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID("item", args[1])
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}

			res, err := runConfirmed(cmd, app, opts, func(confirm bool) (*service.MutationResult, error) {
				return app.Rules.RemoveRuleItem(cmd.Context(), ws, ruleID, itemID, confirm)
			})
			if err != nil {
				return err
			}
			printRuleResult(cmd, res, "Updated")
			return nil
		},
	}
}

func newRuleToggleCmd(app *App, opts *rootOptions) *cobra.Command {
	var mapping int

	cmd := &cobra.Command{
		Use:   "toggle RULE_ID",
		Short: "Flip a rule mapping between must-have and optional",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseID("rule", args[0])
			if err != nil {
				return err
			}
			ws, err := loadWorkspace(cmd.Context(), app, opts)
			if err != nil {
				return err
			}

			rule, err := app.Rules.ToggleMustHave(cmd.Context(), ws, ruleID, mapping)
			if err != nil {
				return err
			}
			typeID := rule.TypeID
			for _, it := range rule.Items {
				if it.MappingIndex == mapping {
					typeID = it.TypeID
					break
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %d mapping %d is now %s\n", rule.ID, mapping, formatter.RuleTypeBadge(typeID))
			return nil
		},
	}

	cmd.Flags().IntVar(&mapping, "mapping", 0, "Mapping index (0 for non-option rules)")

	return cmd
}
