// Package consistency guards attribute reassignments against destructive
// rule and tree edits. It decides, before anything is persisted, whether
// removing a set of rule items orphans ledger entries that no other rule
// still backs.
package consistency

import (
	"fmt"
	"sort"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/rules"
)

// Outcome is the verdict of a consistency check.
type Outcome int

const (
	// ProceedNoCascade commits the mutation and leaves the ledger alone.
	ProceedNoCascade Outcome = iota + 1
	// ProceedWithCascade commits the mutation and deletes the affected
	// reassignments in the same transaction.
	ProceedWithCascade
	// RequireConfirmation blocks until the caller confirms the cascade.
	RequireConfirmation
)

func (o Outcome) String() string {
	switch o {
	case ProceedNoCascade:
		return "proceed"
	case ProceedWithCascade:
		return "proceed-with-cascade"
	case RequireConfirmation:
		return "require-confirmation"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Decision is the result of Check. Reassignments is the set R of ledger
// entries keyed on removed associations; it is empty for a clean removal.
type Decision struct {
	Outcome        Outcome
	AffectedLabels []string
	Reassignments  []domain.AttributeReassignment
}

// Cascade reports whether the mutation must delete Reassignments.
func (d Decision) Cascade() bool { return d.Outcome == ProceedWithCascade }

// NeedsConfirmation reports whether the caller has to ask before committing.
func (d Decision) NeedsConfirmation() bool { return d.Outcome == RequireConfirmation }

// Confirm turns a pending confirmation into a cascade. Other outcomes are
// returned unchanged.
func (d Decision) Confirm() Decision {
	if d.Outcome == RequireConfirmation {
		d.Outcome = ProceedWithCascade
	}
	return d
}

// ReassignmentIDs returns the ids of the reassignments in R.
func (d Decision) ReassignmentIDs() []int64 {
	ids := make([]int64, len(d.Reassignments))
	for i, r := range d.Reassignments {
		ids[i] = r.ID
	}
	return ids
}

// Change describes one proposed removal of rule items.
type Change struct {
	// RuleID is the rule being edited. It never counts as a duplicate.
	// Zero for tree deletes, which touch every rule referencing the items.
	RuleID int64
	// Family is the edited rule's family. Empty for tree deletes, where
	// each removed item is checked against its own rule's family.
	Family domain.RuleFamily
	// Removed are the rule items (associations) that disappear.
	Removed []domain.RuleItem
	// RemovedItems are tree item ids leaving the tree. Reassignments
	// targeting them are part of R and they can never be duplicated.
	RemovedItems []int64
	// DroppedRules are deleted outright by a tree delete and never back a
	// removed item.
	DroppedRules []int64
}

// Labeler resolves tree item labels.
type Labeler interface {
	Label(id int64) string
}

// Checker evaluates changes against the committed rule set.
type Checker struct {
	index  *rules.Index
	labels Labeler
}

// NewChecker builds a checker over the committed rule index.
func NewChecker(index *rules.Index, labels Labeler) *Checker {
	return &Checker{index: index, labels: labels}
}

// Check decides how change may proceed given the reassignments ledger.
// ledger may hold unrelated entries; only those keyed on removed
// associations or targeting removed tree items form R.
func (c *Checker) Check(change Change, ledger []domain.AttributeReassignment) Decision {
	byAssoc := make(map[int64]domain.RuleItem, len(change.Removed))
	for _, it := range change.Removed {
		if it.ID != 0 {
			byAssoc[it.ID] = it
		}
	}
	gone := make(map[int64]bool, len(change.RemovedItems))
	for _, id := range change.RemovedItems {
		gone[id] = true
	}

	var affected []domain.AttributeReassignment
	for _, r := range ledger {
		if _, ok := byAssoc[r.RuleAssociationID]; ok || gone[r.ToChoiceID] {
			affected = append(affected, r)
		}
	}
	if len(affected) == 0 {
		return Decision{Outcome: ProceedNoCascade}
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i].ID < affected[j].ID })

	if c.hasDuplicate(change, affected, byAssoc, gone) {
		return Decision{Outcome: ProceedNoCascade, Reassignments: affected}
	}
	return Decision{
		Outcome:        RequireConfirmation,
		AffectedLabels: c.affectedLabels(affected, byAssoc),
		Reassignments:  affected,
	}
}

func (c *Checker) hasDuplicate(change Change, affected []domain.AttributeReassignment, byAssoc map[int64]domain.RuleItem, gone map[int64]bool) bool {
	if c.index == nil {
		return false
	}
	for _, r := range affected {
		if gone[r.ToChoiceID] {
			return false
		}
	}
	exclude := make(map[int64]bool, len(change.DroppedRules)+1)
	for _, id := range change.DroppedRules {
		exclude[id] = true
	}
	if change.RuleID != 0 {
		exclude[change.RuleID] = true
	}
	for _, r := range affected {
		it, ok := byAssoc[r.RuleAssociationID]
		if !ok || gone[it.ItemID] {
			continue
		}
		family := change.Family
		if family == "" {
			owner, ok := c.index.Rule(it.RuleID)
			if !ok {
				continue
			}
			family = owner.Family
		}
		if c.index.ReferencedOutside(it.ItemID, family, exclude, it.RuleID) {
			return true
		}
	}
	return false
}

func (c *Checker) affectedLabels(affected []domain.AttributeReassignment, byAssoc map[int64]domain.RuleItem) []string {
	seen := make(map[string]bool)
	var labels []string
	add := func(id int64, label string) {
		if label == "" && c.labels != nil {
			label = c.labels.Label(id)
		}
		if label == "" {
			label = fmt.Sprintf("item %d", id)
		}
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	for _, r := range affected {
		if it, ok := byAssoc[r.RuleAssociationID]; ok {
			add(it.ItemID, it.Label)
			continue
		}
		add(r.ToChoiceID, "")
	}
	return labels
}

// RuleDelete is the change for deleting a whole rule.
func RuleDelete(rule domain.Rule) Change {
	return Change{RuleID: rule.ID, Family: rule.Family, Removed: rule.Items}
}

// RuleItemDelete is the change for deleting the rule items of rule that
// reference itemID.
func RuleItemDelete(rule domain.Rule, itemID int64) Change {
	var removed []domain.RuleItem
	for _, it := range rule.Items {
		if it.ItemID == itemID {
			removed = append(removed, it)
		}
	}
	return Change{RuleID: rule.ID, Family: rule.Family, Removed: removed}
}

// RuleSave is the change for saving saved over original: removed is
// original minus saved.
func RuleSave(original, saved domain.Rule) Change {
	return Change{RuleID: original.ID, Family: original.Family, Removed: domain.RemovedItems(original, saved)}
}

// ItemDelete is the change for deleting the tree item at ref: every tree
// item in the subtree leaves the tree, together with the rule items
// referencing them. Rules parented inside the subtree are dropped whole;
// their items stay in Removed but may still be backed by a live rule of the
// same family.
func ItemDelete(tree *catalog.Tree, store *rules.Store, ref int) Change {
	var subtree []int64
	var collect func(int)
	collect = func(cur int) {
		subtree = append(subtree, tree.Node(cur).ID)
		for _, c := range tree.Children(cur) {
			collect(c)
		}
	}
	collect(ref)

	inSubtree := make(map[int64]bool, len(subtree))
	for _, id := range subtree {
		inSubtree[id] = true
	}

	change := Change{RemovedItems: subtree}
	for _, r := range store.All() {
		parented := r.Family.ParentKind() != "" && inSubtree[r.ParentID]
		if parented {
			change.DroppedRules = append(change.DroppedRules, r.ID)
		}
		for _, it := range r.Items {
			if parented || inSubtree[it.ItemID] {
				it.RuleID = r.ID
				change.Removed = append(change.Removed, it)
			}
		}
	}
	return change
}
