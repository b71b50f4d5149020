// Package catalog holds the in-memory decision tree: Group > SubGroup >
// DecisionPoint > Choice. Nodes live in an arena and are addressed by index;
// children are index lists and each node records its parent index.
package catalog

import (
	"fmt"
	"sort"

	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/google/uuid"
)

// NoParent is the parent index of group nodes.
const NoParent = -1

// Node is one arena slot. A zero ID means the node has not been persisted;
// such nodes carry a TempKey until the store assigns an id.
type Node struct {
	ID             int64
	TempKey        string
	Kind           domain.ItemKind
	Label          string
	SortOrder      int
	IsActive       bool
	IntegrationKey string
	Parent         int
	Children       []int

	removed bool
}

// View is the presentation state the search and sort engines compute per node.
type View struct {
	Matched     bool
	Open        bool
	SortChanged bool
}

// Tree is the catalog of one tree version.
type Tree struct {
	VersionID string

	nodes    []Node
	view     []View
	roots    []int
	byID     map[int64]int
	hasRules map[int64]bool
}

// New returns an empty tree for the given version.
func New(versionID string) *Tree {
	return &Tree{
		VersionID: versionID,
		byID:      make(map[int64]int),
		hasRules:  make(map[int64]bool),
	}
}

// Build assembles a tree from persisted items. Items may arrive in any
// order; siblings are ordered by SortOrder, then ID.
func Build(versionID string, items []domain.TreeItem) (*Tree, error) {
	sorted := append([]domain.TreeItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Kind.Depth() != b.Kind.Depth() {
			return a.Kind.Depth() < b.Kind.Depth()
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})

	t := New(versionID)
	for _, it := range sorted {
		if it.Kind.Depth() < 0 {
			return nil, domain.Invalid("kind", "item %d has unknown kind %q", it.ID, it.Kind)
		}
		parent := NoParent
		if it.Kind != domain.KindGroup {
			ref, ok := t.byID[it.ParentID]
			if !ok {
				return nil, fmt.Errorf("item %d: parent %d: %w", it.ID, it.ParentID, domain.ErrNotFound)
			}
			parent = ref
		}
		if _, err := t.attach(parent, it, it.SortOrder); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Len returns the arena size, including removed slots.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns a copy of the node at ref.
func (t *Tree) Node(ref int) Node {
	n := t.nodes[ref]
	n.Children = append([]int(nil), n.Children...)
	return n
}

// Live reports whether ref addresses a node still attached to the tree.
func (t *Tree) Live(ref int) bool {
	return ref >= 0 && ref < len(t.nodes) && !t.nodes[ref].removed
}

// Roots returns the group indexes in sibling order.
func (t *Tree) Roots() []int { return append([]int(nil), t.roots...) }

// Children returns the child indexes of ref in sibling order. NoParent
// yields the groups.
func (t *Tree) Children(ref int) []int {
	if ref == NoParent {
		return t.Roots()
	}
	return append([]int(nil), t.nodes[ref].Children...)
}

// Parent returns the parent index of ref, or NoParent.
func (t *Tree) Parent(ref int) int { return t.nodes[ref].Parent }

// Lookup resolves a persisted id to its arena index.
func (t *Tree) Lookup(id int64) (int, bool) {
	ref, ok := t.byID[id]
	return ref, ok
}

// Label returns the label of the item with the given id, or "" when unknown.
func (t *Tree) Label(id int64) string {
	if ref, ok := t.byID[id]; ok {
		return t.nodes[ref].Label
	}
	return ""
}

// KindOf returns the kind of a persisted item and whether it is live.
func (t *Tree) KindOf(id int64) (domain.ItemKind, bool) {
	ref, ok := t.byID[id]
	if !ok {
		return "", false
	}
	return t.nodes[ref].Kind, true
}

// Ancestor walks up from ref to the first node of the given kind.
func (t *Tree) Ancestor(ref int, kind domain.ItemKind) (int, bool) {
	for cur := ref; cur != NoParent; cur = t.nodes[cur].Parent {
		if t.nodes[cur].Kind == kind {
			return cur, true
		}
	}
	return NoParent, false
}

// Descendants returns every live node of the given kind beneath ref,
// including ref itself when it matches, in tree order.
func (t *Tree) Descendants(ref int, kind domain.ItemKind) []int {
	var out []int
	var walk func(int)
	walk = func(cur int) {
		if t.nodes[cur].Kind == kind {
			out = append(out, cur)
		}
		for _, c := range t.nodes[cur].Children {
			walk(c)
		}
	}
	walk(ref)
	return out
}

// Walk visits every live node depth-first in sibling order. Returning false
// from fn skips the node's children.
func (t *Tree) Walk(fn func(ref, depth int) bool) {
	var walk func(ref, depth int)
	walk = func(ref, depth int) {
		if !fn(ref, depth) {
			return
		}
		for _, c := range t.nodes[ref].Children {
			walk(c, depth+1)
		}
	}
	for _, r := range t.roots {
		walk(r, 0)
	}
}

// Items flattens the live tree into persisted records in tree order.
func (t *Tree) Items() []domain.TreeItem {
	var out []domain.TreeItem
	t.Walk(func(ref, _ int) bool {
		n := t.nodes[ref]
		var parentID int64
		if n.Parent != NoParent {
			parentID = t.nodes[n.Parent].ID
		}
		out = append(out, domain.TreeItem{
			ID:             n.ID,
			TreeVersionID:  t.VersionID,
			Kind:           n.Kind,
			ParentID:       parentID,
			Label:          n.Label,
			SortOrder:      n.SortOrder,
			IsActive:       n.IsActive,
			IntegrationKey: n.IntegrationKey,
		})
		return true
	})
	return out
}

// InsertChild appends item under parent and returns its index. Unsaved items
// (ID 0) get a temp key and are flagged for the next sort batch.
func (t *Tree) InsertChild(parent int, item domain.TreeItem) (int, error) {
	if parent != NoParent && !t.Live(parent) {
		return NoParent, domain.Invalid("parent", "index %d is not a live node", parent)
	}
	if item.ID != 0 {
		if _, dup := t.byID[item.ID]; dup {
			return NoParent, domain.Invalid("id", "item %d already in tree", item.ID)
		}
	}
	ref, err := t.attach(parent, item, len(t.Children(parent))+1)
	if err != nil {
		return NoParent, err
	}
	if item.ID == 0 {
		t.nodes[ref].TempKey = uuid.New().String()
		t.view[ref].SortChanged = true
	}
	return ref, nil
}

// RemoveChild detaches ref and its whole subtree and renumbers the remaining
// siblings 1..N. It returns the persisted ids of every removed node.
func (t *Tree) RemoveChild(ref int) ([]int64, error) {
	if !t.Live(ref) {
		return nil, fmt.Errorf("index %d: %w", ref, domain.ErrNotFound)
	}
	parent := t.nodes[ref].Parent
	siblings := t.Children(parent)
	kept := siblings[:0]
	for _, s := range siblings {
		if s != ref {
			kept = append(kept, s)
		}
	}
	t.setChildren(parent, kept)
	for i, s := range kept {
		t.nodes[s].SortOrder = i + 1
	}

	var removed []int64
	var drop func(int)
	drop = func(cur int) {
		n := &t.nodes[cur]
		n.removed = true
		if n.ID != 0 {
			removed = append(removed, n.ID)
			delete(t.byID, n.ID)
			delete(t.hasRules, n.ID)
		}
		for _, c := range n.Children {
			drop(c)
		}
	}
	drop(ref)
	return removed, nil
}

// SetActive toggles the active flag of ref.
func (t *Tree) SetActive(ref int, active bool) {
	t.nodes[ref].IsActive = active
}

// View returns the presentation state of ref.
func (t *Tree) View(ref int) View { return t.view[ref] }

// SetMatch records search state for ref.
func (t *Tree) SetMatch(ref int, matched, open bool) {
	t.view[ref].Matched = matched
	t.view[ref].Open = open
}

// HasRules reports whether the item carries rules, as last recorded.
func (t *Tree) HasRules(id int64) bool { return t.hasRules[id] }

// SetHasRules records the rule-presence flag of an item.
func (t *Tree) SetHasRules(id int64, has bool) {
	if has {
		t.hasRules[id] = true
		return
	}
	delete(t.hasRules, id)
}

// Clone returns a deep copy sharing no state with t.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		VersionID: t.VersionID,
		nodes:     make([]Node, len(t.nodes)),
		view:      append([]View(nil), t.view...),
		roots:     append([]int(nil), t.roots...),
		byID:      make(map[int64]int, len(t.byID)),
		hasRules:  make(map[int64]bool, len(t.hasRules)),
	}
	for i, n := range t.nodes {
		n.Children = append([]int(nil), n.Children...)
		c.nodes[i] = n
	}
	for k, v := range t.byID {
		c.byID[k] = v
	}
	for k, v := range t.hasRules {
		c.hasRules[k] = v
	}
	return c
}

// Restore replaces t's contents with a copy of snapshot.
func (t *Tree) Restore(snapshot *Tree) {
	*t = *snapshot.Clone()
}

func (t *Tree) attach(parent int, item domain.TreeItem, sortOrder int) (int, error) {
	want := domain.KindGroup
	if parent != NoParent {
		want = t.nodes[parent].Kind.ChildKind()
	}
	if item.Kind != want {
		return NoParent, domain.Invalid("kind", "%q cannot be placed where %q is expected", item.Kind, want)
	}

	ref := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		ID:             item.ID,
		Kind:           item.Kind,
		Label:          item.Label,
		SortOrder:      sortOrder,
		IsActive:       item.IsActive,
		IntegrationKey: item.IntegrationKey,
		Parent:         parent,
	})
	t.view = append(t.view, View{})
	if item.ID != 0 {
		t.byID[item.ID] = ref
	}
	if parent == NoParent {
		t.roots = append(t.roots, ref)
	} else {
		t.nodes[parent].Children = append(t.nodes[parent].Children, ref)
	}
	return ref, nil
}

func (t *Tree) setChildren(parent int, children []int) {
	if parent == NoParent {
		t.roots = append([]int(nil), children...)
		return
	}
	t.nodes[parent].Children = append([]int(nil), children...)
}
