package catalog

import (
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/sortorder"
)

// SortDiff is one renumbered item headed for persistence. Unsaved items have
// ID 0 and are matched back by TempKey; ParentTempKey is set when the parent
// itself is unsaved.
type SortDiff struct {
	Ref            int
	ID             int64
	TempKey        string
	Kind           domain.ItemKind
	ParentID       int64
	ParentTempKey  string
	Label          string
	SortOrder      int
	IsActive       bool
	IntegrationKey string
}

// SortBatch is the change set produced by SortList.
type SortBatch struct {
	Points  []SortDiff
	Choices []SortDiff
}

// Empty reports whether the batch carries no changes.
func (b SortBatch) Empty() bool {
	return len(b.Points) == 0 && len(b.Choices) == 0
}

// Reorder moves the sibling at fromIndex under parent to toIndex, renumbers
// the whole sibling list 1..N and flags every sibling as sort-changed.
// Parent indexes are not touched.
func (t *Tree) Reorder(parent, fromIndex, toIndex int) error {
	if parent != NoParent && !t.Live(parent) {
		return domain.Invalid("parent", "index %d is not a live node", parent)
	}
	siblings := t.Children(parent)
	out, err := sortorder.ReSort(t.slots(siblings), fromIndex, toIndex)
	if err != nil {
		return err
	}
	t.apply(parent, sortorder.Compact(out))
	return nil
}

// MoveToParent detaches ref and inserts it under newParent at toIndex. Both
// the source and destination sibling lists are renumbered.
func (t *Tree) MoveToParent(ref, newParent, toIndex int) error {
	if !t.Live(ref) {
		return domain.Invalid("ref", "index %d is not a live node", ref)
	}
	if newParent != NoParent && !t.Live(newParent) {
		return domain.Invalid("parent", "index %d is not a live node", newParent)
	}
	want := domain.KindGroup
	if newParent != NoParent {
		want = t.nodes[newParent].Kind.ChildKind()
	}
	if t.nodes[ref].Kind != want {
		return domain.Invalid("parent", "%q cannot be moved where %q is expected", t.nodes[ref].Kind, want)
	}

	oldParent := t.nodes[ref].Parent
	if oldParent == newParent {
		from := indexOf(t.Children(oldParent), ref)
		return t.Reorder(oldParent, from, toIndex)
	}

	source := t.slots(t.Children(oldParent))
	source, moved, err := sortorder.Remove(source, indexOf(t.Children(oldParent), ref))
	if err != nil {
		return err
	}
	dest, err := sortorder.Insert(t.slots(t.Children(newParent)), moved, toIndex)
	if err != nil {
		return err
	}

	t.apply(oldParent, source)
	t.nodes[ref].Parent = newParent
	t.apply(newParent, sortorder.Compact(dest))
	return nil
}

// SortList collects every sort-changed point and choice in tree order.
func (t *Tree) SortList() SortBatch {
	var batch SortBatch
	t.Walk(func(ref, _ int) bool {
		if !t.view[ref].SortChanged {
			return true
		}
		n := t.nodes[ref]
		diff := SortDiff{
			Ref:            ref,
			ID:             n.ID,
			TempKey:        n.TempKey,
			Kind:           n.Kind,
			Label:          n.Label,
			SortOrder:      n.SortOrder,
			IsActive:       n.IsActive,
			IntegrationKey: n.IntegrationKey,
		}
		if n.Parent != NoParent {
			p := t.nodes[n.Parent]
			diff.ParentID = p.ID
			if p.ID == 0 {
				diff.ParentTempKey = p.TempKey
			}
		}
		switch n.Kind {
		case domain.KindPoint:
			batch.Points = append(batch.Points, diff)
		case domain.KindChoice:
			batch.Choices = append(batch.Choices, diff)
		}
		return true
	})
	return batch
}

// ResetSort clears every sort-changed flag.
func (t *Tree) ResetSort() {
	for i := range t.view {
		t.view[i].SortChanged = false
	}
}

// ApplyIDs assigns persisted ids to unsaved nodes by temp key.
func (t *Tree) ApplyIDs(assigned map[string]int64) {
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.ID != 0 || n.TempKey == "" || n.removed {
			continue
		}
		if id, ok := assigned[n.TempKey]; ok {
			n.ID = id
			n.TempKey = ""
			t.byID[id] = i
		}
	}
}

func (t *Tree) slots(refs []int) []sortorder.Slot {
	out := make([]sortorder.Slot, len(refs))
	for i, r := range refs {
		out[i] = sortorder.Slot{Ref: r, SortOrder: t.nodes[r].SortOrder, SortChanged: t.view[r].SortChanged}
	}
	return out
}

func (t *Tree) apply(parent int, list []sortorder.Slot) {
	children := make([]int, 0, len(list))
	for _, s := range list {
		if s.IsPlaceholder() {
			continue
		}
		t.nodes[s.Ref].SortOrder = s.SortOrder
		t.view[s.Ref].SortChanged = s.SortChanged
		children = append(children, s.Ref)
	}
	t.setChildren(parent, children)
}

func indexOf(refs []int, ref int) int {
	for i, r := range refs {
		if r == ref {
			return i
		}
	}
	return -1
}

// DragSession brackets a series of reorders so they can be abandoned as a
// unit. The snapshot is taken when the session begins.
type DragSession struct {
	tree     *Tree
	snapshot *Tree
}

// BeginDrag snapshots t.
func BeginDrag(t *Tree) *DragSession {
	return &DragSession{tree: t, snapshot: t.Clone()}
}

// Tree returns the live tree being edited.
func (s *DragSession) Tree() *Tree { return s.tree }

// Cancel restores the pre-drag snapshot verbatim.
func (s *DragSession) Cancel() {
	s.tree.Restore(s.snapshot)
}

// Changes returns the pending sort batch.
func (s *DragSession) Changes() SortBatch {
	return s.tree.SortList()
}
