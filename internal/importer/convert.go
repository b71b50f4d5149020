package importer

import (
	"fmt"

	"github.com/alexanderramin/choicetree/internal/domain"
)

// Plan is a converted catalog. Item ids are provisional (1..N in file
// order) and every id inside Rules and Reassignments refers to them; the
// import service swaps in the ids the database assigns.
type Plan struct {
	VersionName   string
	Items         []domain.TreeItem
	Rules         []domain.Rule
	Reassignments []PlannedReassignment
}

// PlannedReassignment keys a reassignment on Rules[RuleIndex].Items[ItemIndex].
type PlannedReassignment struct {
	RuleIndex        int
	ItemIndex        int
	ToChoiceID       int64
	AttributeGroupID int64
}

// KindOf resolves provisional ids, so rules.Validate can check a plan
// before anything is written.
func (p *Plan) KindOf(id int64) (domain.ItemKind, bool) {
	if id < 1 || id > int64(len(p.Items)) {
		return "", false
	}
	return p.Items[id-1].Kind, true
}

// Convert transforms a CatalogSchema into a Plan. Call ValidateCatalogSchema
// first; Convert only reports unresolvable references.
func Convert(schema *CatalogSchema) (*Plan, error) {
	plan := &Plan{VersionName: schema.Version.Name}
	ids := make(map[string]int64)

	add := func(it ItemImport, kind domain.ItemKind, parentID int64, order int) int64 {
		active := true
		if it.Active != nil {
			active = *it.Active
		}
		id := int64(len(plan.Items) + 1)
		plan.Items = append(plan.Items, domain.TreeItem{
			ID:             id,
			Kind:           kind,
			ParentID:       parentID,
			Label:          it.Label,
			SortOrder:      order,
			IsActive:       active,
			IntegrationKey: it.IntegrationKey,
		})
		ids[it.Ref] = id
		return id
	}

	for gi, g := range schema.Groups {
		gid := add(g.ItemImport, domain.KindGroup, 0, gi+1)
		for si, sg := range g.SubGroups {
			sid := add(sg.ItemImport, domain.KindSubGroup, gid, si+1)
			for pi, p := range sg.Points {
				pid := add(p.ItemImport, domain.KindPoint, sid, pi+1)
				for ci, c := range p.Choices {
					add(c, domain.KindChoice, pid, ci+1)
				}
			}
		}
	}

	ruleIndex := make(map[string]int, len(schema.Rules))
	for i, r := range schema.Rules {
		rule, err := convertRule(plan, ids, r)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] %q: %w", i, r.Ref, err)
		}
		ruleIndex[r.Ref] = len(plan.Rules)
		plan.Rules = append(plan.Rules, rule)
	}

	for i, ra := range schema.Reassignments {
		planned, err := convertReassignment(plan, ids, ruleIndex, ra)
		if err != nil {
			return nil, fmt.Errorf("reassignments[%d]: %w", i, err)
		}
		plan.Reassignments = append(plan.Reassignments, planned)
	}
	return plan, nil
}

func convertRule(plan *Plan, ids map[string]int64, r RuleImport) (domain.Rule, error) {
	family := domain.RuleFamily(r.Family)
	rule := domain.Rule{
		Family:         family,
		IntegrationKey: r.Option,
		TypeID:         parseRuleType(r.Type),
	}
	if family.ParentKind() != "" {
		id, ok := ids[r.Parent]
		if !ok {
			return domain.Rule{}, fmt.Errorf("unknown parent ref %q", r.Parent)
		}
		rule.ParentID = id
	}
	for _, it := range r.Items {
		id, ok := ids[it.Ref]
		if !ok {
			return domain.Rule{}, fmt.Errorf("unknown item ref %q", it.Ref)
		}
		typeID := rule.TypeID
		if it.Type != "" {
			typeID = parseRuleType(it.Type)
		}
		rule.Items = append(rule.Items, domain.RuleItem{
			ItemID:       id,
			PointID:      owningPoint(plan, id),
			MappingIndex: it.Mapping,
			TypeID:       typeID,
		})
	}
	return rule, nil
}

func convertReassignment(plan *Plan, ids map[string]int64, ruleIndex map[string]int, ra ReassignmentImport) (PlannedReassignment, error) {
	ri, ok := ruleIndex[ra.Rule]
	if !ok {
		return PlannedReassignment{}, fmt.Errorf("unknown rule ref %q", ra.Rule)
	}
	itemID, ok := ids[ra.Item]
	if !ok {
		return PlannedReassignment{}, fmt.Errorf("unknown item ref %q", ra.Item)
	}
	to, ok := ids[ra.To]
	if !ok {
		return PlannedReassignment{}, fmt.Errorf("unknown target ref %q", ra.To)
	}
	for i, it := range plan.Rules[ri].Items {
		if it.ItemID == itemID && it.MappingIndex == ra.Mapping {
			return PlannedReassignment{RuleIndex: ri, ItemIndex: i, ToChoiceID: to, AttributeGroupID: ra.AttributeGroup}, nil
		}
	}
	return PlannedReassignment{}, fmt.Errorf("rule %q has no item %q under mapping %d", ra.Rule, ra.Item, ra.Mapping)
}

// owningPoint returns the point an item belongs to: the item itself for
// points, the parent for choices.
func owningPoint(plan *Plan, id int64) int64 {
	it := plan.Items[id-1]
	if it.Kind == domain.KindChoice {
		return it.ParentID
	}
	return it.ID
}

func parseRuleType(s string) domain.RuleType {
	if s == "optional" {
		return domain.RuleOptional
	}
	return domain.RuleMustHave
}
