// Package rules holds the rule store: grouping of rule items into alternate
// mappings, mapping edits, and the in-memory rule collection of a tree
// version.
package rules

import (
	"sort"

	"github.com/alexanderramin/choicetree/internal/domain"
)

// PointItems is the slice of a mapping that belongs to one decision point.
type PointItems struct {
	PointID int64
	Items   []domain.RuleItem
}

// MappingGroup is every rule item sharing one mapping index, split by point.
type MappingGroup struct {
	MappingIndex int
	ItemsByPoint []PointItems
}

// Items flattens the group back into rule items.
func (g MappingGroup) Items() []domain.RuleItem {
	var out []domain.RuleItem
	for _, p := range g.ItemsByPoint {
		out = append(out, p.Items...)
	}
	return out
}

// TypeID returns the rule type of the group. Groups are homogeneous, so the
// first item decides; empty groups report 0.
func (g MappingGroup) TypeID() domain.RuleType {
	for _, p := range g.ItemsByPoint {
		for _, it := range p.Items {
			return it.TypeID
		}
	}
	return 0
}

// GetMappingGroups groups items by mapping index, then by point id. Groups
// are ordered by mapping index; points keep their first-seen order.
func GetMappingGroups(items []domain.RuleItem) []MappingGroup {
	byMapping := make(map[int][]domain.RuleItem)
	var indexes []int
	for _, it := range items {
		if _, ok := byMapping[it.MappingIndex]; !ok {
			indexes = append(indexes, it.MappingIndex)
		}
		byMapping[it.MappingIndex] = append(byMapping[it.MappingIndex], it)
	}
	sort.Ints(indexes)

	groups := make([]MappingGroup, 0, len(indexes))
	for _, idx := range indexes {
		groups = append(groups, MappingGroup{
			MappingIndex: idx,
			ItemsByPoint: groupByPoint(byMapping[idx]),
		})
	}
	return groups
}

func groupByPoint(items []domain.RuleItem) []PointItems {
	pos := make(map[int64]int)
	var out []PointItems
	for _, it := range items {
		i, ok := pos[it.PointID]
		if !ok {
			i = len(out)
			pos[it.PointID] = i
			out = append(out, PointItems{PointID: it.PointID})
		}
		out[i].Items = append(out[i].Items, it)
	}
	return out
}

// NextMappingIndex returns max(existing)+1, or 0 when items is empty.
func NextMappingIndex(items []domain.RuleItem) int {
	if len(items) == 0 {
		return 0
	}
	next := items[0].MappingIndex
	for _, it := range items[1:] {
		if it.MappingIndex > next {
			next = it.MappingIndex
		}
	}
	return next + 1
}

// requireMappings rejects rules that cannot hold alternate mappings. Only
// option rules do; the others keep a single implicit mapping 0.
func requireMappings(rule domain.Rule) error {
	if rule.Family != domain.FamilyOptionToChoice {
		return domain.Invalid("family", "%s rules have a single mapping", rule.Family)
	}
	return nil
}

// AddMapping appends items to rule under a fresh mapping index and returns
// the updated rule and the index used. rule is not modified.
func AddMapping(rule domain.Rule, items []domain.RuleItem, typeID domain.RuleType) (domain.Rule, int, error) {
	if err := requireMappings(rule); err != nil {
		return rule, 0, err
	}
	if len(items) == 0 {
		return rule, 0, domain.Invalid("items", "a mapping needs at least one item")
	}
	out := rule.Clone()
	idx := NextMappingIndex(out.Items)
	for _, it := range items {
		it.MappingIndex = idx
		it.TypeID = typeID
		it.RuleID = rule.ID
		out.Items = append(out.Items, it)
	}
	return out, idx, nil
}

// EditMapping replaces the items of one mapping, keeping the mapping's
// type. Items already present keep their association ids.
func EditMapping(rule domain.Rule, mappingIndex int, items []domain.RuleItem) (domain.Rule, error) {
	if err := requireMappings(rule); err != nil {
		return rule, err
	}
	if len(items) == 0 {
		return rule, domain.Invalid("items", "a mapping needs at least one item")
	}
	var existing []domain.RuleItem
	var others []domain.RuleItem
	for _, it := range rule.Items {
		if it.MappingIndex == mappingIndex {
			existing = append(existing, it)
		} else {
			others = append(others, it)
		}
	}
	if len(existing) == 0 {
		return rule, domain.Invalid("mapping_index", "mapping %d does not exist", mappingIndex)
	}
	typeID := existing[0].TypeID
	assoc := make(map[int64]int64, len(existing))
	for _, it := range existing {
		assoc[it.ItemID] = it.ID
	}

	out := rule.Clone()
	out.Items = append([]domain.RuleItem(nil), others...)
	for _, it := range items {
		it.ID = assoc[it.ItemID]
		it.RuleID = rule.ID
		it.MappingIndex = mappingIndex
		it.TypeID = typeID
		out.Items = append(out.Items, it)
	}
	return out, nil
}

// DeleteMapping removes every item sharing mappingIndex. It returns the
// updated rule and the removed items; partial removal is not possible.
func DeleteMapping(rule domain.Rule, mappingIndex int) (domain.Rule, []domain.RuleItem, error) {
	if err := requireMappings(rule); err != nil {
		return rule, nil, err
	}
	out := rule.Clone()
	out.Items = out.Items[:0]
	var removed []domain.RuleItem
	for _, it := range rule.Items {
		if it.MappingIndex == mappingIndex {
			removed = append(removed, it)
			continue
		}
		out.Items = append(out.Items, it)
	}
	if len(removed) == 0 {
		return rule, nil, domain.Invalid("mapping_index", "mapping %d does not exist", mappingIndex)
	}
	return out, removed, nil
}

// ToggleMustHave flips every item of one mapping between must-have and
// optional. The returned rule is a fresh copy, so callers swap it in as a
// single step and never observe a mixed mapping. Non-option rules have one
// implicit mapping (index 0) and also flip the rule's own type.
func ToggleMustHave(rule domain.Rule, mappingIndex int) (domain.Rule, error) {
	out := rule.Clone()
	found := false
	var next domain.RuleType
	for i := range out.Items {
		if out.Items[i].MappingIndex != mappingIndex {
			continue
		}
		if !found {
			next = out.Items[i].TypeID.Toggle()
			found = true
		}
		out.Items[i].TypeID = next
	}
	if !found {
		return rule, domain.Invalid("mapping_index", "mapping %d does not exist", mappingIndex)
	}
	if rule.Family != domain.FamilyOptionToChoice {
		out.TypeID = next
	}
	return out, nil
}
