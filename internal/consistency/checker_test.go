package consistency

import (
	"testing"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Style (3) > [ChoiceA (10), ChoiceB (11)], Finish (4) > [Matte (20)].
func fixture(t *testing.T) *catalog.Tree {
	t.Helper()
	tree, err := catalog.Build("v1", []domain.TreeItem{
		{ID: 1, Kind: domain.KindGroup, Label: "Kitchen", SortOrder: 1},
		{ID: 2, Kind: domain.KindSubGroup, ParentID: 1, Label: "Cabinets", SortOrder: 1},
		{ID: 3, Kind: domain.KindPoint, ParentID: 2, Label: "Style", SortOrder: 1},
		{ID: 10, Kind: domain.KindChoice, ParentID: 3, Label: "ChoiceA", SortOrder: 1},
		{ID: 11, Kind: domain.KindChoice, ParentID: 3, Label: "ChoiceB", SortOrder: 2},
		{ID: 4, Kind: domain.KindPoint, ParentID: 2, Label: "Finish", SortOrder: 2},
		{ID: 20, Kind: domain.KindChoice, ParentID: 4, Label: "Matte", SortOrder: 1},
	})
	require.NoError(t, err)
	return tree
}

func r1() domain.Rule {
	return domain.Rule{
		ID: 1, Family: domain.FamilyPointToChoice, ParentID: 4, TypeID: domain.RuleMustHave,
		Items: []domain.RuleItem{{ID: 100, RuleID: 1, ItemID: 10, PointID: 3, TypeID: domain.RuleMustHave}},
	}
}

func TestCheck_NoReassignmentsProceeds(t *testing.T) {
	tree := fixture(t)
	store := rules.NewStore("v1", []domain.Rule{r1()})
	c := NewChecker(store.Index(), tree)

	d := c.Check(RuleDelete(r1()), []domain.AttributeReassignment{
		{ID: 1, RuleAssociationID: 999, ToChoiceID: 20},
	})

	assert.Equal(t, ProceedNoCascade, d.Outcome)
	assert.Empty(t, d.Reassignments)
	assert.False(t, d.Cascade())
}

func TestCheck_OrphanedReassignmentRequiresConfirmation(t *testing.T) {
	tree := fixture(t)
	rule := r1()
	store := rules.NewStore("v1", []domain.Rule{rule})
	c := NewChecker(store.Index(), tree)
	ledger := []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100, ToChoiceID: 20, AttributeGroupID: 5}}

	d := c.Check(RuleItemDelete(rule, 10), ledger)

	assert.Equal(t, RequireConfirmation, d.Outcome)
	assert.Equal(t, []string{"ChoiceA"}, d.AffectedLabels)
	assert.Equal(t, []int64{7}, d.ReassignmentIDs())
	assert.True(t, d.NeedsConfirmation())

	confirmed := d.Confirm()
	assert.Equal(t, ProceedWithCascade, confirmed.Outcome)
	assert.True(t, confirmed.Cascade())
	assert.Equal(t, RequireConfirmation, d.Outcome, "confirm returns a copy")
}

func TestCheck_DuplicateRuleKeepsReassignment(t *testing.T) {
	tree := fixture(t)
	rule := r1()
	twin := domain.Rule{
		ID: 2, Family: domain.FamilyPointToChoice, ParentID: 3, TypeID: domain.RuleMustHave,
		Items: []domain.RuleItem{{ID: 200, RuleID: 2, ItemID: 10, PointID: 3, TypeID: domain.RuleMustHave}},
	}
	store := rules.NewStore("v1", []domain.Rule{rule, twin})
	c := NewChecker(store.Index(), tree)

	d := c.Check(RuleDelete(rule), []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100, ToChoiceID: 20}})

	assert.Equal(t, ProceedNoCascade, d.Outcome)
	assert.Len(t, d.Reassignments, 1)
}

func TestCheck_DuplicateInOtherFamilyDoesNotCount(t *testing.T) {
	tree := fixture(t)
	rule := r1()
	other := domain.Rule{
		ID: 2, Family: domain.FamilyChoiceToChoice, ParentID: 20, TypeID: domain.RuleMustHave,
		Items: []domain.RuleItem{{ID: 200, RuleID: 2, ItemID: 10, TypeID: domain.RuleMustHave}},
	}
	store := rules.NewStore("v1", []domain.Rule{rule, other})
	c := NewChecker(store.Index(), tree)

	d := c.Check(RuleDelete(rule), []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100}})

	assert.Equal(t, RequireConfirmation, d.Outcome)
}

func TestCheck_EditedRuleNeverCountsAsDuplicate(t *testing.T) {
	tree := fixture(t)
	original := domain.Rule{
		ID: 1, Family: domain.FamilyOptionToChoice, IntegrationKey: "OPT",
		Items: []domain.RuleItem{
			{ID: 100, RuleID: 1, ItemID: 10, PointID: 3, MappingIndex: 0, TypeID: domain.RuleMustHave},
			{ID: 101, RuleID: 1, ItemID: 10, PointID: 3, MappingIndex: 1, TypeID: domain.RuleMustHave},
		},
	}
	saved := original.Clone()
	saved.Items = saved.Items[1:]
	store := rules.NewStore("v1", []domain.Rule{original})
	c := NewChecker(store.Index(), tree)

	d := c.Check(RuleSave(original, saved), []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100}})

	assert.Equal(t, RequireConfirmation, d.Outcome)
	assert.Equal(t, []string{"ChoiceA"}, d.AffectedLabels)
}

func TestCheck_SaveWithoutShrinkProceeds(t *testing.T) {
	tree := fixture(t)
	original := r1()
	saved := original.Clone()
	saved.Items = append(saved.Items, domain.RuleItem{ItemID: 11, PointID: 3, TypeID: domain.RuleMustHave})
	c := NewChecker(rules.NewStore("v1", []domain.Rule{original}).Index(), tree)

	d := c.Check(RuleSave(original, saved), []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100}})

	assert.Equal(t, ProceedNoCascade, d.Outcome)
}

func TestCheck_PointDeleteListsOrphanedChoice(t *testing.T) {
	tree := fixture(t)
	store := rules.NewStore("v1", []domain.Rule{r1()})
	c := NewChecker(store.Index(), tree)
	ledger := []domain.AttributeReassignment{
		{ID: 7, RuleAssociationID: 100, ToChoiceID: 20},
		{ID: 8, RuleAssociationID: 555, ToChoiceID: 21},
	}
	point, ok := tree.Lookup(3)
	require.True(t, ok)

	change := ItemDelete(tree, store, point)
	d := c.Check(change, ledger)

	assert.ElementsMatch(t, []int64{3, 10, 11}, change.RemovedItems)
	assert.Equal(t, RequireConfirmation, d.Outcome)
	assert.Equal(t, []string{"ChoiceA"}, d.AffectedLabels)
	assert.Equal(t, []int64{7}, d.ReassignmentIDs())
}

func TestCheck_ChoiceDeleteCatchesReassignmentTargets(t *testing.T) {
	tree := fixture(t)
	store := rules.NewStore("v1", nil)
	c := NewChecker(store.Index(), tree)
	matte, _ := tree.Lookup(20)

	d := c.Check(ItemDelete(tree, store, matte), []domain.AttributeReassignment{{ID: 3, RuleAssociationID: 100, ToChoiceID: 20}})

	assert.Equal(t, RequireConfirmation, d.Outcome)
	assert.Equal(t, []string{"Matte"}, d.AffectedLabels)
}

func TestCheck_DeletedChoiceIsNeverBackedElsewhere(t *testing.T) {
	tree := fixture(t)
	rule := r1()
	twin := domain.Rule{
		ID: 2, Family: domain.FamilyPointToChoice, ParentID: 3, TypeID: domain.RuleMustHave,
		Items: []domain.RuleItem{{ID: 200, RuleID: 2, ItemID: 10, TypeID: domain.RuleMustHave}},
	}
	store := rules.NewStore("v1", []domain.Rule{rule, twin})
	c := NewChecker(store.Index(), tree)
	choice, _ := tree.Lookup(10)

	d := c.Check(ItemDelete(tree, store, choice), []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100}})

	assert.Equal(t, RequireConfirmation, d.Outcome, "every rule loses the choice")
}

func TestCheck_PointDeleteKeepsReassignmentBackedByLiveRule(t *testing.T) {
	tree := fixture(t)
	// r1 is parented by Finish (4) and dropped with it; twin, parented by
	// Style (3), still references ChoiceA.
	rule := r1()
	twin := domain.Rule{
		ID: 2, Family: domain.FamilyPointToChoice, ParentID: 3, TypeID: domain.RuleMustHave,
		Items: []domain.RuleItem{{ID: 200, RuleID: 2, ItemID: 10, TypeID: domain.RuleMustHave}},
	}
	store := rules.NewStore("v1", []domain.Rule{rule, twin})
	c := NewChecker(store.Index(), tree)
	finish, _ := tree.Lookup(4)

	change := ItemDelete(tree, store, finish)
	assert.Equal(t, []int64{1}, change.DroppedRules)

	d := c.Check(change, []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100, ToChoiceID: 11}})

	assert.Equal(t, ProceedNoCascade, d.Outcome)
	assert.False(t, d.Cascade())
}

func TestCheck_PointDeleteWithDeletedTargetRequiresConfirmation(t *testing.T) {
	tree := fixture(t)
	rule := r1()
	twin := domain.Rule{
		ID: 2, Family: domain.FamilyPointToChoice, ParentID: 3, TypeID: domain.RuleMustHave,
		Items: []domain.RuleItem{{ID: 200, RuleID: 2, ItemID: 10, TypeID: domain.RuleMustHave}},
	}
	store := rules.NewStore("v1", []domain.Rule{rule, twin})
	c := NewChecker(store.Index(), tree)
	finish, _ := tree.Lookup(4)

	// The reassignment points at Matte, which leaves with Finish.
	d := c.Check(ItemDelete(tree, store, finish), []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100, ToChoiceID: 20}})

	assert.Equal(t, RequireConfirmation, d.Outcome)
}

func TestCheck_PointDeleteIgnoresBackingRuleDroppedAlongside(t *testing.T) {
	tree := fixture(t)
	// Both rules are parented by Finish, so neither survives the delete.
	rule := r1()
	sibling := domain.Rule{
		ID: 2, Family: domain.FamilyPointToChoice, ParentID: 4, TypeID: domain.RuleOptional,
		Items: []domain.RuleItem{{ID: 200, RuleID: 2, ItemID: 10, TypeID: domain.RuleOptional}},
	}
	store := rules.NewStore("v1", []domain.Rule{rule, sibling})
	c := NewChecker(store.Index(), tree)
	finish, _ := tree.Lookup(4)

	d := c.Check(ItemDelete(tree, store, finish), []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100, ToChoiceID: 11}})

	assert.Equal(t, RequireConfirmation, d.Outcome)
	assert.Equal(t, []string{"ChoiceA"}, d.AffectedLabels)
}

func TestCheck_PointDeleteDuplicateMustShareFamily(t *testing.T) {
	tree := fixture(t)
	rule := r1()
	other := domain.Rule{
		ID: 2, Family: domain.FamilyChoiceToChoice, ParentID: 11, TypeID: domain.RuleMustHave,
		Items: []domain.RuleItem{{ID: 200, RuleID: 2, ItemID: 10, TypeID: domain.RuleMustHave}},
	}
	store := rules.NewStore("v1", []domain.Rule{rule, other})
	c := NewChecker(store.Index(), tree)
	finish, _ := tree.Lookup(4)

	d := c.Check(ItemDelete(tree, store, finish), []domain.AttributeReassignment{{ID: 7, RuleAssociationID: 100, ToChoiceID: 11}})

	assert.Equal(t, RequireConfirmation, d.Outcome)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "require-confirmation", RequireConfirmation.String())
	assert.Equal(t, "Outcome(0)", Outcome(0).String())
}

func TestItemDelete_IncludesRulesParentedInSubtree(t *testing.T) {
	tree := fixture(t)
	// Parented by Finish (4); its item lives outside the deleted subtree.
	parented := domain.Rule{
		ID: 5, Family: domain.FamilyPointToChoice, ParentID: 4, TypeID: domain.RuleMustHave,
		Items: []domain.RuleItem{{ID: 500, RuleID: 5, ItemID: 11, TypeID: domain.RuleMustHave}},
	}
	store := rules.NewStore("v1", []domain.Rule{parented})
	c := NewChecker(store.Index(), tree)
	finish, _ := tree.Lookup(4)

	change := ItemDelete(tree, store, finish)
	require.Len(t, change.Removed, 1)
	assert.Equal(t, int64(500), change.Removed[0].ID)

	d := c.Check(change, []domain.AttributeReassignment{{ID: 9, RuleAssociationID: 500, ToChoiceID: 10}})
	assert.Equal(t, RequireConfirmation, d.Outcome)
	assert.Equal(t, []string{"ChoiceB"}, d.AffectedLabels)
}
