package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleType_Toggle(t *testing.T) {
	assert.Equal(t, RuleOptional, RuleMustHave.Toggle())
	assert.Equal(t, RuleMustHave, RuleOptional.Toggle())
	assert.False(t, RuleType(3).Valid())
}

func TestItemKind_Hierarchy(t *testing.T) {
	assert.Equal(t, KindSubGroup, KindGroup.ChildKind())
	assert.Equal(t, KindChoice, KindPoint.ChildKind())
	assert.Equal(t, ItemKind(""), KindChoice.ChildKind())
	assert.Equal(t, KindPoint, KindChoice.ParentKind())
	assert.Equal(t, 3, KindChoice.Depth())
}

func TestRuleFamily_Kinds(t *testing.T) {
	assert.Equal(t, KindPoint, FamilyPointToPoint.ItemKind())
	assert.Equal(t, KindChoice, FamilyPointToChoice.ItemKind())
	assert.Equal(t, KindChoice, FamilyChoiceToChoice.ParentKind())
	assert.Equal(t, ItemKind(""), FamilyOptionToChoice.ParentKind())
}

func TestRule_ItemIDsDistinctSorted(t *testing.T) {
	r := Rule{Items: []RuleItem{{ItemID: 9}, {ItemID: 3}, {ItemID: 9, MappingIndex: 1}}}
	assert.Equal(t, []int64{3, 9}, r.ItemIDs())
	assert.True(t, r.HasItem(3))
	assert.False(t, r.HasItem(4))
}

func TestRule_CloneIsDeep(t *testing.T) {
	r := Rule{ID: 1, Items: []RuleItem{{ItemID: 1, TypeID: RuleMustHave}}}
	c := r.Clone()
	c.Items[0].TypeID = RuleOptional
	assert.Equal(t, RuleMustHave, r.Items[0].TypeID)
}

func TestRemovedItems(t *testing.T) {
	original := Rule{Items: []RuleItem{
		{ID: 10, ItemID: 1},
		{ID: 11, ItemID: 2},
		{ID: 12, ItemID: 2, MappingIndex: 1},
	}}
	saved := Rule{Items: []RuleItem{{ItemID: 2}}}

	removed := RemovedItems(original, saved)
	require.Len(t, removed, 2)
	assert.Equal(t, int64(10), removed[0].ID)
	assert.Equal(t, int64(12), removed[1].ID)
}

func TestRemovedItems_NothingRemoved(t *testing.T) {
	r := Rule{Items: []RuleItem{{ID: 1, ItemID: 5}}}
	assert.Empty(t, RemovedItems(r, r))
}

func TestValidationError_UnwrapsToSentinel(t *testing.T) {
	err := Invalid("items", "must not be empty")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "items: must not be empty")
}
