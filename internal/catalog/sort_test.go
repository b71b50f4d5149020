package catalog

import (
	"testing"

	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorder_MovesAndRenumbersSiblings(t *testing.T) {
	tree := kitchenTree(t)
	style := ref(t, tree, 3)

	require.NoError(t, tree.Reorder(style, 2, 0))

	assert.Equal(t, []string{"Inset", "Shaker", "Flat Panel", "Slab"}, childLabels(tree, style))
	for i, c := range tree.Children(style) {
		assert.Equal(t, i+1, tree.Node(c).SortOrder)
		assert.True(t, tree.View(c).SortChanged)
		assert.Equal(t, style, tree.Parent(c), "parent back-reference must not change")
	}
}

func TestReorder_PastEndLandsLast(t *testing.T) {
	tree := kitchenTree(t)
	style := ref(t, tree, 3)

	require.NoError(t, tree.Reorder(style, 0, 9))
	assert.Equal(t, []string{"Flat Panel", "Inset", "Slab", "Shaker"}, childLabels(tree, style))
	assert.Equal(t, 4, tree.Node(ref(t, tree, 10)).SortOrder)
}

func TestMoveToParent_RenumbersBothLists(t *testing.T) {
	tree := kitchenTree(t)
	style, hardware := ref(t, tree, 3), ref(t, tree, 4)
	knobs := ref(t, tree, 20)

	require.NoError(t, tree.MoveToParent(knobs, style, 1))

	assert.Equal(t, []string{"Shaker", "Knobs", "Flat Panel", "Inset", "Slab"}, childLabels(tree, style))
	assert.Equal(t, []string{"Pulls"}, childLabels(tree, hardware))
	assert.Equal(t, style, tree.Parent(knobs))
	assert.Equal(t, 1, tree.Node(ref(t, tree, 21)).SortOrder)
}

func TestMoveToParent_RejectsKindMismatch(t *testing.T) {
	tree := kitchenTree(t)
	err := tree.MoveToParent(ref(t, tree, 20), ref(t, tree, 2), 0)
	assert.Error(t, err)
}

func TestSortList_OnlyChangedItems(t *testing.T) {
	tree := kitchenTree(t)
	assert.True(t, tree.SortList().Empty())

	require.NoError(t, tree.Reorder(ref(t, tree, 4), 1, 0))
	batch := tree.SortList()

	assert.Empty(t, batch.Points)
	require.Len(t, batch.Choices, 2)
	assert.Equal(t, "Pulls", batch.Choices[0].Label)
	assert.Equal(t, 1, batch.Choices[0].SortOrder)
	assert.Equal(t, int64(4), batch.Choices[0].ParentID)

	tree.ResetSort()
	assert.True(t, tree.SortList().Empty())
}

func TestSortList_UnsavedParentCarriesTempKey(t *testing.T) {
	tree := kitchenTree(t)
	point, err := tree.InsertChild(ref(t, tree, 2), domain.TreeItem{Kind: domain.KindPoint, Label: "Finish"})
	require.NoError(t, err)
	_, err = tree.InsertChild(point, domain.TreeItem{Kind: domain.KindChoice, Label: "Matte"})
	require.NoError(t, err)

	batch := tree.SortList()
	require.Len(t, batch.Points, 1)
	require.Len(t, batch.Choices, 1)
	assert.Equal(t, batch.Points[0].TempKey, batch.Choices[0].ParentTempKey)

	tree.ApplyIDs(map[string]int64{batch.Points[0].TempKey: 50, batch.Choices[0].TempKey: 51})
	assert.Equal(t, "Finish", tree.Label(50))
	assert.Equal(t, "Matte", tree.Label(51))
}

func TestDragSession_CancelRestoresSnapshot(t *testing.T) {
	tree := kitchenTree(t)
	before := tree.Items()
	style := ref(t, tree, 3)

	session := BeginDrag(tree)
	require.NoError(t, tree.Reorder(style, 3, 0))
	require.NoError(t, tree.MoveToParent(ref(t, tree, 21), style, 0))
	assert.False(t, session.Changes().Empty())

	session.Cancel()
	assert.Equal(t, before, tree.Items())
	assert.True(t, tree.SortList().Empty())
}
