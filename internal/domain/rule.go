package domain

import "sort"

// Rule is a directional dependency from a parent (choice, point, or plan
// option) to a set of target tree items.
type Rule struct {
	ID            int64
	TreeVersionID string
	Family        RuleFamily
	ParentID      int64
	// IntegrationKey identifies the plan option for option rules.
	IntegrationKey string
	TypeID         RuleType
	Revision       int
	Items          []RuleItem
}

// RuleItem links a rule to one tree item. Its ID is the rule association id
// that attribute reassignments are keyed on. For option rules the item also
// carries its alternate mapping index and owning point.
type RuleItem struct {
	ID           int64
	RuleID       int64
	ItemID       int64
	PointID      int64
	MappingIndex int
	TypeID       RuleType
	Label        string
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	c := r
	c.Items = append([]RuleItem(nil), r.Items...)
	return c
}

// ItemIDs returns the distinct tree item ids referenced by the rule, sorted.
func (r Rule) ItemIDs() []int64 {
	seen := make(map[int64]bool, len(r.Items))
	var ids []int64
	for _, it := range r.Items {
		if !seen[it.ItemID] {
			seen[it.ItemID] = true
			ids = append(ids, it.ItemID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasItem reports whether any rule item references itemID.
func (r Rule) HasItem(itemID int64) bool {
	for _, it := range r.Items {
		if it.ItemID == itemID {
			return true
		}
	}
	return false
}

// RemovedItems returns the items of original that saved no longer carries.
// An item is kept when saved references the same tree item under the same
// mapping index; association ids are not required on saved.
func RemovedItems(original, saved Rule) []RuleItem {
	type key struct {
		item    int64
		mapping int
	}
	kept := make(map[key]bool, len(saved.Items))
	for _, it := range saved.Items {
		kept[key{it.ItemID, it.MappingIndex}] = true
	}
	var removed []RuleItem
	for _, it := range original.Items {
		if !kept[key{it.ItemID, it.MappingIndex}] {
			removed = append(removed, it)
		}
	}
	return removed
}
