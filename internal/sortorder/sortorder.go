// Package sortorder implements sibling reordering for the decision tree.
// Functions here are pure: they take a sibling list and return a new one.
package sortorder

import (
	"sort"

	"github.com/alexanderramin/choicetree/internal/domain"
)

// PlaceholderRef marks a padding slot with no backing node.
const PlaceholderRef = -1

// Slot is one position in a sibling list.
type Slot struct {
	Ref         int // arena index of the node, or PlaceholderRef
	SortOrder   int
	SortChanged bool
}

// Placeholder returns an empty padding slot.
func Placeholder() Slot {
	return Slot{Ref: PlaceholderRef}
}

// IsPlaceholder reports whether the slot is padding.
func (s Slot) IsPlaceholder() bool {
	return s.Ref == PlaceholderRef
}

// ReSort moves the element at oldIndex to newIndex and renumbers the list.
//
// When newIndex is past the end, placeholders are appended first so that a
// drop beyond the current length lands exactly at newIndex. Every element is
// renumbered 1..N in the new order and flagged SortChanged, whether or not
// its number moved. The result is finally sorted by SortOrder.
func ReSort(list []Slot, oldIndex, newIndex int) ([]Slot, error) {
	if oldIndex < 0 || oldIndex >= len(list) {
		return nil, domain.Invalid("old_index", "%d out of range [0,%d)", oldIndex, len(list))
	}
	if newIndex < 0 {
		return nil, domain.Invalid("new_index", "%d must not be negative", newIndex)
	}

	out := Pad(list, newIndex)
	moved := out[oldIndex]
	out = append(out[:oldIndex], out[oldIndex+1:]...)
	out = insertAt(out, newIndex, moved)

	Renumber(out)
	SortBySortOrder(out)
	return out, nil
}

// Insert places slot at index, padding with placeholders when index is past
// the end, and renumbers the list.
func Insert(list []Slot, slot Slot, index int) ([]Slot, error) {
	if index < 0 {
		return nil, domain.Invalid("index", "%d must not be negative", index)
	}
	out := Pad(list, index-1)
	out = insertAt(out, index, slot)
	Renumber(out)
	return out, nil
}

// Remove drops the element at index and renumbers the remainder.
func Remove(list []Slot, index int) ([]Slot, Slot, error) {
	if index < 0 || index >= len(list) {
		return nil, Slot{}, domain.Invalid("index", "%d out of range [0,%d)", index, len(list))
	}
	out := append([]Slot(nil), list...)
	removed := out[index]
	out = append(out[:index], out[index+1:]...)
	Renumber(out)
	return out, removed, nil
}

// Pad returns a copy of list extended with placeholders so that index is a
// valid position. A copy is returned even when no padding is needed.
func Pad(list []Slot, index int) []Slot {
	out := make([]Slot, len(list), max(len(list), index+1))
	copy(out, list)
	for len(out) <= index {
		out = append(out, Placeholder())
	}
	return out
}

// Compact drops placeholders and renumbers what remains.
func Compact(list []Slot) []Slot {
	out := make([]Slot, 0, len(list))
	for _, s := range list {
		if !s.IsPlaceholder() {
			out = append(out, s)
		}
	}
	Renumber(out)
	return out
}

// Renumber assigns 1..N in list order and flags every slot as changed.
func Renumber(list []Slot) {
	for i := range list {
		list[i].SortOrder = i + 1
		list[i].SortChanged = true
	}
}

// SortBySortOrder stably orders slots by their numeric sort value.
func SortBySortOrder(list []Slot) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].SortOrder < list[j].SortOrder
	})
}

func insertAt(list []Slot, index int, s Slot) []Slot {
	if index >= len(list) {
		return append(list, s)
	}
	list = append(list, Slot{})
	copy(list[index+1:], list[index:])
	list[index] = s
	return list
}
