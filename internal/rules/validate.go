package rules

import (
	"fmt"

	"github.com/alexanderramin/choicetree/internal/domain"
)

// ItemResolver answers kind lookups for live tree items.
type ItemResolver interface {
	KindOf(id int64) (domain.ItemKind, bool)
}

// Validate checks a rule before it is sent to persistence: a known family
// and type, at least one item, every item resolving to a live tree item of
// the family's kind, and one type per mapping.
func Validate(rule domain.Rule, tree ItemResolver) error {
	if !domain.ValidRuleFamilies[string(rule.Family)] {
		return domain.Invalid("family", "unknown rule family %q", rule.Family)
	}
	if rule.Family != domain.FamilyOptionToChoice && !rule.TypeID.Valid() {
		return domain.Invalid("type_id", "unknown rule type %d", rule.TypeID)
	}
	if len(rule.Items) == 0 {
		return domain.Invalid("items", "rule needs at least one item")
	}
	if want := rule.Family.ParentKind(); want != "" {
		kind, ok := tree.KindOf(rule.ParentID)
		if !ok {
			return fmt.Errorf("rule parent %d: %w", rule.ParentID, domain.ErrNotFound)
		}
		if kind != want {
			return domain.Invalid("parent_id", "item %d is a %s, %s rules need a %s", rule.ParentID, kind, rule.Family, want)
		}
	} else if rule.IntegrationKey == "" {
		return domain.Invalid("integration_key", "option rules need an option integration key")
	}

	want := rule.Family.ItemKind()
	mappingType := make(map[int]domain.RuleType)
	for _, it := range rule.Items {
		kind, ok := tree.KindOf(it.ItemID)
		if !ok {
			return fmt.Errorf("rule item %d: %w", it.ItemID, domain.ErrNotFound)
		}
		if kind != want {
			return domain.Invalid("items", "item %d is a %s, %s rules reference %s items", it.ItemID, kind, rule.Family, want)
		}
		if !it.TypeID.Valid() {
			return domain.Invalid("items", "item %d has unknown type %d", it.ItemID, it.TypeID)
		}
		if rule.Family != domain.FamilyOptionToChoice && it.TypeID != rule.TypeID {
			return domain.Invalid("items", "item %d type %s differs from rule type %s", it.ItemID, it.TypeID, rule.TypeID)
		}
		if prev, ok := mappingType[it.MappingIndex]; ok && prev != it.TypeID {
			return domain.Invalid("items", "mapping %d mixes %s and %s items", it.MappingIndex, prev, it.TypeID)
		}
		mappingType[it.MappingIndex] = it.TypeID
	}
	return nil
}
