package rules

import (
	"slices"
	"sort"

	"github.com/alexanderramin/choicetree/internal/domain"
)

// Upsert saves rule into rules by id: id 0 or an unknown id appends, a known
// id is replaced in place at the same position. The input slice is not
// modified.
func Upsert(rules []domain.Rule, rule domain.Rule) []domain.Rule {
	out := make([]domain.Rule, len(rules), len(rules)+1)
	copy(out, rules)
	if rule.ID != 0 {
		for i := range out {
			if out[i].ID == rule.ID {
				out[i] = rule.Clone()
				return out
			}
		}
	}
	return append(out, rule.Clone())
}

// Store is the in-memory rule collection of one tree version. Mutations
// replace whole rules so readers never see half-applied edits.
type Store struct {
	versionID string
	rules     []domain.Rule
	index     *Index
}

// Snapshot is an opaque copy of a store's contents.
type Snapshot struct {
	rules []domain.Rule
}

// NewStore builds a store from loaded rules.
func NewStore(versionID string, loaded []domain.Rule) *Store {
	s := &Store{versionID: versionID}
	for _, r := range loaded {
		s.rules = append(s.rules, r.Clone())
	}
	s.reindex()
	return s
}

// VersionID returns the tree version the store belongs to.
func (s *Store) VersionID() string { return s.versionID }

// All returns a copy of every rule in insertion order.
func (s *Store) All() []domain.Rule {
	out := make([]domain.Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Clone()
	}
	return out
}

// Get returns the rule with the given id.
func (s *Store) Get(id int64) (domain.Rule, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return domain.Rule{}, false
}

// Family returns every rule of the given family.
func (s *Store) Family(f domain.RuleFamily) []domain.Rule {
	var out []domain.Rule
	for _, r := range s.rules {
		if r.Family == f {
			out = append(out, r.Clone())
		}
	}
	return out
}

// ForItem returns the rules whose parent is itemID or whose items reference
// it, ordered by rule id.
func (s *Store) ForItem(itemID int64) []domain.Rule {
	ids := s.index.RulesFor(itemID)
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	var out []domain.Rule
	for _, r := range s.rules {
		if seen[r.ID] || (r.Family.ParentKind() != "" && r.ParentID == itemID) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Save upserts rule by id.
func (s *Store) Save(rule domain.Rule) {
	s.rules = Upsert(s.rules, rule)
	s.reindex()
}

// Delete removes the rule with the given id. Missing ids are ignored.
func (s *Store) Delete(id int64) {
	kept := s.rules[:0]
	for _, r := range s.rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.rules = kept
	s.reindex()
}

// DropItems removes every rule item referencing the given tree items and
// every rule whose parent is one of them, mirroring a tree delete. Rules left
// without items are removed as well.
func (s *Store) DropItems(itemIDs []int64) {
	gone := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		gone[id] = true
	}
	var kept []domain.Rule
	for _, r := range s.rules {
		if r.Family.ParentKind() != "" && gone[r.ParentID] {
			continue
		}
		items := r.Items[:0:0]
		for _, it := range r.Items {
			if !gone[it.ItemID] {
				items = append(items, it)
			}
		}
		if len(items) == 0 {
			continue
		}
		r.Items = items
		kept = append(kept, r)
	}
	s.rules = kept
	s.reindex()
}

// Snapshot captures the current contents.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{rules: s.All()}
}

// Restore replaces the contents with a snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.rules = nil
	for _, r := range snap.rules {
		s.rules = append(s.rules, r.Clone())
	}
	s.reindex()
}

// Index returns the item index over the current contents.
func (s *Store) Index() *Index { return s.index }

func (s *Store) reindex() {
	s.index = NewIndex(s.rules)
}

// Index maps tree item ids to the rules whose items reference them. It is
// rebuilt on every store mutation so lookups stay O(1).
type Index struct {
	byItem map[int64][]int64
	byRule map[int64]domain.Rule
}

// NewIndex indexes rules by referenced item id.
func NewIndex(rules []domain.Rule) *Index {
	idx := &Index{
		byItem: make(map[int64][]int64),
		byRule: make(map[int64]domain.Rule, len(rules)),
	}
	for _, r := range rules {
		idx.byRule[r.ID] = r
		for _, itemID := range r.ItemIDs() {
			idx.byItem[itemID] = append(idx.byItem[itemID], r.ID)
		}
	}
	return idx
}

// RulesFor returns the ids of rules referencing itemID.
func (x *Index) RulesFor(itemID int64) []int64 {
	return append([]int64(nil), x.byItem[itemID]...)
}

// Rule returns the indexed rule with the given id.
func (x *Index) Rule(id int64) (domain.Rule, bool) {
	r, ok := x.byRule[id]
	return r, ok
}

// ReferencedElsewhere reports whether a rule of family other than
// excludeRuleID references itemID.
func (x *Index) ReferencedElsewhere(itemID int64, family domain.RuleFamily, excludeRuleID int64) bool {
	return x.ReferencedOutside(itemID, family, nil, excludeRuleID)
}

// ReferencedOutside reports whether a rule of family references itemID,
// ignoring the rules in exclude and the extra ids.
func (x *Index) ReferencedOutside(itemID int64, family domain.RuleFamily, exclude map[int64]bool, extra ...int64) bool {
	for _, id := range x.byItem[itemID] {
		if exclude[id] || slices.Contains(extra, id) {
			continue
		}
		if x.byRule[id].Family == family {
			return true
		}
	}
	return false
}
