package catalog

import (
	"testing"

	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/stretchr/testify/require"
)

// kitchenTree builds Kitchen > Cabinets > Style > [Shaker, Flat Panel, Inset, Slab]
// plus a second point Hardware > [Knobs, Pulls].
func kitchenTree(t *testing.T) *Tree {
	t.Helper()
	items := []domain.TreeItem{
		{ID: 1, Kind: domain.KindGroup, Label: "Kitchen", SortOrder: 1, IsActive: true},
		{ID: 2, Kind: domain.KindSubGroup, ParentID: 1, Label: "Cabinets", SortOrder: 1, IsActive: true},
		{ID: 3, Kind: domain.KindPoint, ParentID: 2, Label: "Style", SortOrder: 1, IsActive: true},
		{ID: 10, Kind: domain.KindChoice, ParentID: 3, Label: "Shaker", SortOrder: 1, IsActive: true},
		{ID: 11, Kind: domain.KindChoice, ParentID: 3, Label: "Flat Panel", SortOrder: 2, IsActive: true},
		{ID: 12, Kind: domain.KindChoice, ParentID: 3, Label: "Inset", SortOrder: 3, IsActive: true},
		{ID: 13, Kind: domain.KindChoice, ParentID: 3, Label: "Slab", SortOrder: 4, IsActive: true},
		{ID: 4, Kind: domain.KindPoint, ParentID: 2, Label: "Hardware", SortOrder: 2, IsActive: true},
		{ID: 20, Kind: domain.KindChoice, ParentID: 4, Label: "Knobs", SortOrder: 1, IsActive: true},
		{ID: 21, Kind: domain.KindChoice, ParentID: 4, Label: "Pulls", SortOrder: 2, IsActive: true},
	}
	tree, err := Build("v1", items)
	require.NoError(t, err)
	return tree
}

func ref(t *testing.T, tree *Tree, id int64) int {
	t.Helper()
	r, ok := tree.Lookup(id)
	require.True(t, ok, "item %d should be in tree", id)
	return r
}

func childLabels(tree *Tree, parent int) []string {
	var out []string
	for _, c := range tree.Children(parent) {
		out = append(out, tree.Node(c).Label)
	}
	return out
}
