package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/consistency"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kitchen(t *testing.T) *catalog.Tree {
	t.Helper()
	item := func(id int64, kind domain.ItemKind, parent int64, label string, order int) domain.TreeItem {
		return domain.TreeItem{ID: id, TreeVersionID: "v1", Kind: kind, ParentID: parent, Label: label, SortOrder: order, IsActive: true}
	}
	pulls := item(8, domain.KindChoice, 6, "Pulls", 2)
	pulls.IsActive = false
	tree, err := catalog.Build("v1", []domain.TreeItem{
		item(1, domain.KindGroup, 0, "Kitchen", 1),
		item(2, domain.KindSubGroup, 1, "Cabinets", 1),
		item(3, domain.KindPoint, 2, "Style", 1),
		item(4, domain.KindChoice, 3, "Shaker", 1),
		item(5, domain.KindChoice, 3, "Flat Panel", 2),
		item(6, domain.KindPoint, 2, "Hardware", 2),
		item(7, domain.KindChoice, 6, "Knobs", 1),
		pulls,
	})
	require.NoError(t, err)
	return tree
}

func TestFormatCatalog_ShowsWholeTreeAfterClear(t *testing.T) {
	tree := kitchen(t)
	search.Clear(tree)
	tree.SetHasRules(6, true)

	out := stripANSI(FormatCatalog(tree))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "#1 Kitchen (group)", lines[0])
	assert.Equal(t, "└─ #2 Cabinets (subgroup)", lines[1])
	assert.Equal(t, "   ├─ #3 Style", lines[2])
	assert.Equal(t, "   │  ├─ #4 Shaker", lines[3])
	assert.Equal(t, "   └─ ◆ #6 Hardware", lines[5])
	assert.Equal(t, "      └─ #8 Pulls", lines[7])
}

func TestFormatCatalog_HidesUnmatchedNodes(t *testing.T) {
	tree := kitchen(t)
	res := search.Run(tree, "knob", search.FilterChoice)
	require.Equal(t, 1, res.Count)

	out := stripANSI(FormatCatalog(tree))

	assert.Contains(t, out, "Hardware")
	assert.Contains(t, out, "Knobs")
	assert.NotContains(t, out, "Style")
	assert.NotContains(t, out, "Pulls")
}

func TestFormatCatalog_NothingVisible(t *testing.T) {
	tree := kitchen(t)
	search.Run(tree, "zzz", search.FilterAll)

	assert.Contains(t, stripANSI(FormatCatalog(tree)), "No items.")
}

func TestFormatSearchSummary(t *testing.T) {
	assert.Equal(t, `No results for "x" in all.`, stripANSI(FormatSearchSummary("x", "all", 0)))
	assert.Equal(t, `1 match for "x" in choice.`, stripANSI(FormatSearchSummary("x", "choice", 1)))
	assert.Equal(t, `3 matches for "x" in all.`, stripANSI(FormatSearchSummary("x", "all", 3)))
}

func TestFormatRuleList_GroupsPointsWithinMapping(t *testing.T) {
	tree := kitchen(t)
	rules := []domain.Rule{
		{ID: 3, Family: domain.FamilyOptionToChoice, IntegrationKey: "OPT", TypeID: domain.RuleMustHave,
			Items: []domain.RuleItem{
				{ItemID: 4, PointID: 3, MappingIndex: 0},
				{ItemID: 7, PointID: 6, MappingIndex: 0},
				{ItemID: 5, PointID: 3, MappingIndex: 0},
			}},
	}

	out := stripANSI(FormatRuleList(rules, tree))

	assert.Contains(t, out, "0: Style › Shaker, Flat Panel; Hardware › Knobs")
}

func TestFormatRuleList_GroupsOptionMappings(t *testing.T) {
	tree := kitchen(t)
	rules := []domain.Rule{
		{ID: 1, Family: domain.FamilyChoiceToChoice, ParentID: 4, TypeID: domain.RuleMustHave,
			Items: []domain.RuleItem{{ItemID: 7}}},
		{ID: 2, Family: domain.FamilyOptionToChoice, IntegrationKey: "PLAN-OPT-12", TypeID: domain.RuleOptional,
			Items: []domain.RuleItem{
				{ItemID: 4, PointID: 3, MappingIndex: 0},
				{ItemID: 7, PointID: 6, MappingIndex: 0},
				{ItemID: 5, PointID: 3, MappingIndex: 1},
			}},
	}

	out := stripANSI(FormatRuleList(rules, tree))

	assert.Contains(t, out, "choice_to_choice")
	assert.Contains(t, out, "Shaker")
	assert.Contains(t, out, "PLAN-OPT-12")
	assert.Contains(t, out, "0: Style › Shaker; Hardware › Knobs | 1: Style › Flat Panel")
	assert.Contains(t, out, "must-have")
	assert.Contains(t, out, "optional")
}

func TestFormatVersionList(t *testing.T) {
	versions := []*domain.TreeVersion{
		{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", Name: "Spring", CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)},
		{ID: "short", Name: "Fall", CreatedAt: time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)},
	}

	out := stripANSI(FormatVersionList(versions))

	assert.Contains(t, out, "0f8fad5b")
	assert.NotContains(t, out, "d9cb")
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "2026-03-01 09:30")
}

func TestFormatDecision(t *testing.T) {
	pending := consistency.Decision{Outcome: consistency.RequireConfirmation, AffectedLabels: []string{"Knobs"}}
	out := stripANSI(FormatDecision(pending))
	assert.Contains(t, out, "will be removed")
	assert.Contains(t, out, "• Knobs")
	assert.Equal(t, "Delete reassignments for Knobs?", ConfirmPrompt(pending))

	cascade := pending.Confirm()
	cascade.Reassignments = []domain.AttributeReassignment{{ID: 1}, {ID: 2}}
	assert.Contains(t, stripANSI(FormatDecision(cascade)), "Removed 2 attribute reassignment(s)")

	clean := consistency.Decision{Outcome: consistency.ProceedNoCascade}
	assert.Contains(t, stripANSI(FormatDecision(clean)), "No attribute reassignments affected.")
}

func TestFormatImpact(t *testing.T) {
	tree := kitchen(t)
	out := stripANSI(FormatImpact(domain.DeleteImpact{
		RemovedItemIDs:          []int64{3, 4, 5},
		AffectedPoints:          []int64{6},
		AffectedIntegrationKeys: []string{"PLAN-OPT-12"},
	}, tree))

	assert.Contains(t, out, "Deleted 3 item(s)")
	assert.Contains(t, out, "rules updated on: Hardware")
	assert.Contains(t, out, "plan options updated: PLAN-OPT-12")
}

func TestFormatSortBatch(t *testing.T) {
	assert.Contains(t, stripANSI(FormatSortBatch(catalog.SortBatch{})), "Nothing to reorder.")

	out := stripANSI(FormatSortBatch(catalog.SortBatch{
		Choices: []catalog.SortDiff{
			{ID: 7, Kind: domain.KindChoice, Label: "Knobs", SortOrder: 2},
			{Kind: domain.KindChoice, Label: "Handles", SortOrder: 3},
		},
	}))
	assert.Contains(t, out, "Knobs")
	assert.Contains(t, out, "new")
}

func TestRenderTable_AlignsStyledCells(t *testing.T) {
	out := stripANSI(RenderTable([]string{"A", "B"}, [][]string{
		{StyleGreen.Render("long cell"), "x"},
		{"s", "y"},
	}))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "A          B", lines[0])
	assert.Equal(t, "─────────  ─", lines[1])
	assert.Equal(t, "long cell  x", lines[2])
	assert.Equal(t, "s          y", lines[3])
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, nil))
}
