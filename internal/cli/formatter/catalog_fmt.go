package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/rules"
)

// FormatCatalog renders the visible part of a catalog tree: nodes whose
// view state is matched, descending only into open containers. Items that
// parent rules are flagged and inactive items are dimmed.
func FormatCatalog(tree *catalog.Tree) string {
	var items []TreeItem

	var visit func(refs []int, level int)
	visit = func(refs []int, level int) {
		visible := visibleRefs(tree, refs)
		for i, ref := range visible {
			n := tree.Node(ref)
			title := KindStyle(n.Kind).Render(n.Label)
			if n.Kind == domain.KindGroup || n.Kind == domain.KindSubGroup {
				title = KindStyle(n.Kind).Render(n.Label) + Dim(" ("+string(n.Kind)+")")
			}
			detail := ""
			if n.IntegrationKey != "" {
				detail = n.IntegrationKey
			}
			items = append(items, TreeItem{
				Title:   title,
				ID:      n.ID,
				Level:   level,
				IsLast:  i == len(visible)-1,
				Flagged: n.ID != 0 && tree.HasRules(n.ID),
				Muted:   !n.IsActive,
				Detail:  detail,
			})
			if tree.View(ref).Open {
				visit(n.Children, level+1)
			}
		}
	}
	visit(tree.Roots(), 0)

	if len(items) == 0 {
		return Dim("No items.") + "\n"
	}
	return RenderTree(items)
}

func visibleRefs(tree *catalog.Tree, refs []int) []int {
	var out []int
	for _, ref := range refs {
		if tree.View(ref).Matched {
			out = append(out, ref)
		}
	}
	return out
}

// FormatSearchSummary renders the hit count line shown under a search.
func FormatSearchSummary(keyword, filter string, count int) string {
	if count == 0 {
		return StyleYellow.Render(fmt.Sprintf("No results for %q in %s.", keyword, filter))
	}
	noun := "matches"
	if count == 1 {
		noun = "match"
	}
	return Dim(fmt.Sprintf("%d %s for %q in %s.", count, noun, keyword, filter))
}

// FormatVersionList renders tree versions as a table.
func FormatVersionList(versions []*domain.TreeVersion) string {
	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		rows = append(rows, []string{
			ShortID(v.ID),
			v.Name,
			v.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return RenderTable([]string{"ID", "NAME", "CREATED"}, rows)
}

// ShortID abbreviates a tree version id for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Labeler resolves tree item ids to labels.
type Labeler interface {
	Label(id int64) string
}

// FormatRuleList renders rules as a table, one row per rule with its items
// grouped by mapping.
func FormatRuleList(list []domain.Rule, labels Labeler) string {
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		parent := labels.Label(r.ParentID)
		if r.Family == domain.FamilyOptionToChoice {
			parent = r.IntegrationKey
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			string(r.Family),
			parent,
			RuleTypeBadge(r.TypeID),
			ruleItemSummary(r, labels),
		})
	}
	return RenderTable([]string{"ID", "FAMILY", "PARENT", "TYPE", "ITEMS"}, rows)
}

// ruleItemSummary lists items by mapping, then by point. Option rules show
// every mapping with its points; other rules have one implicit mapping whose
// point is the rule's own parent, so only item labels are shown.
func ruleItemSummary(r domain.Rule, labels Labeler) string {
	groups := rules.GetMappingGroups(r.Items)
	if r.Family != domain.FamilyOptionToChoice {
		var names []string
		for _, g := range groups {
			names = append(names, itemLabels(g.Items(), labels)...)
		}
		return strings.Join(names, ", ")
	}
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		points := make([]string, 0, len(g.ItemsByPoint))
		for _, p := range g.ItemsByPoint {
			names := strings.Join(itemLabels(p.Items, labels), ", ")
			if p.PointID != 0 {
				names = labels.Label(p.PointID) + " › " + names
			}
			points = append(points, names)
		}
		parts = append(parts, fmt.Sprintf("%d: %s", g.MappingIndex, strings.Join(points, "; ")))
	}
	return strings.Join(parts, " | ")
}

func itemLabels(items []domain.RuleItem, labels Labeler) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = labels.Label(it.ItemID)
	}
	return out
}

// FormatReassignments renders the ledger for a tree version.
func FormatReassignments(list []domain.AttributeReassignment, labels Labeler) string {
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			labels.Label(r.ToChoiceID),
			fmt.Sprintf("%d", r.RuleAssociationID),
			fmt.Sprintf("%d", r.AttributeGroupID),
		})
	}
	return RenderTable([]string{"ID", "TO CHOICE", "ASSOCIATION", "ATTRIBUTE GROUP"}, rows)
}
