package domain

import "fmt"

// ItemKind identifies the level of a node in the decision tree.
type ItemKind string

const (
	KindGroup    ItemKind = "group"
	KindSubGroup ItemKind = "subgroup"
	KindPoint    ItemKind = "point"
	KindChoice   ItemKind = "choice"
)

// ValidItemKinds is the canonical set of accepted item kind strings.
var ValidItemKinds = map[string]bool{
	"group": true, "subgroup": true, "point": true, "choice": true,
}

// Depth returns the 0-based level of the kind (group = 0, choice = 3).
func (k ItemKind) Depth() int {
	switch k {
	case KindGroup:
		return 0
	case KindSubGroup:
		return 1
	case KindPoint:
		return 2
	case KindChoice:
		return 3
	default:
		return -1
	}
}

// ChildKind returns the kind expected directly beneath k, or "" for leaves.
func (k ItemKind) ChildKind() ItemKind {
	switch k {
	case KindGroup:
		return KindSubGroup
	case KindSubGroup:
		return KindPoint
	case KindPoint:
		return KindChoice
	default:
		return ""
	}
}

// ParentKind returns the kind expected directly above k, or "" for groups.
func (k ItemKind) ParentKind() ItemKind {
	switch k {
	case KindSubGroup:
		return KindGroup
	case KindPoint:
		return KindSubGroup
	case KindChoice:
		return KindPoint
	default:
		return ""
	}
}

// RuleType distinguishes must-have rules from optional ones. The numeric
// values are the persisted type ids.
type RuleType int

const (
	RuleMustHave RuleType = 1
	RuleOptional RuleType = 2
)

// Toggle returns the opposite rule type.
func (t RuleType) Toggle() RuleType {
	if t == RuleMustHave {
		return RuleOptional
	}
	return RuleMustHave
}

func (t RuleType) Valid() bool {
	return t == RuleMustHave || t == RuleOptional
}

func (t RuleType) String() string {
	switch t {
	case RuleMustHave:
		return "must-have"
	case RuleOptional:
		return "optional"
	default:
		return fmt.Sprintf("RuleType(%d)", int(t))
	}
}

// RuleFamily names the direction of a rule: what the parent is and what
// its items reference.
type RuleFamily string

const (
	FamilyChoiceToChoice RuleFamily = "choice_to_choice"
	FamilyPointToPoint   RuleFamily = "point_to_point"
	FamilyPointToChoice  RuleFamily = "point_to_choice"
	FamilyOptionToChoice RuleFamily = "option_to_choice"
)

// ValidRuleFamilies is the canonical set of accepted rule family strings.
var ValidRuleFamilies = map[string]bool{
	"choice_to_choice": true, "point_to_point": true,
	"point_to_choice": true, "option_to_choice": true,
}

// ParentKind returns the tree kind of the rule parent. Option rules hang off
// a plan option outside the tree, so they report "".
func (f RuleFamily) ParentKind() ItemKind {
	switch f {
	case FamilyChoiceToChoice:
		return KindChoice
	case FamilyPointToPoint, FamilyPointToChoice:
		return KindPoint
	default:
		return ""
	}
}

// ItemKind returns the tree kind every rule item of the family must reference.
func (f RuleFamily) ItemKind() ItemKind {
	if f == FamilyPointToPoint {
		return KindPoint
	}
	return KindChoice
}
