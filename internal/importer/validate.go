package importer

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/rules"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateCatalogSchema checks the schema before conversion: struct tags,
// unique refs, resolvable references, and every rule against the catalog
// it would be imported into. Returns all errors found.
func ValidateCatalogSchema(schema *CatalogSchema) []error {
	var errs []error
	if err := validate.Struct(schema); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []error{err}
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag()))
		}
		return errs
	}

	kinds := make(map[string]domain.ItemKind)
	seen := func(ref string, kind domain.ItemKind) {
		if _, dup := kinds[ref]; dup {
			errs = append(errs, fmt.Errorf("duplicate item ref %q", ref))
			return
		}
		kinds[ref] = kind
	}
	for _, g := range schema.Groups {
		seen(g.Ref, domain.KindGroup)
		for _, sg := range g.SubGroups {
			seen(sg.Ref, domain.KindSubGroup)
			for _, p := range sg.Points {
				seen(p.Ref, domain.KindPoint)
				for _, c := range p.Choices {
					seen(c.Ref, domain.KindChoice)
				}
			}
		}
	}

	ruleRefs := make(map[string]bool)
	for i, r := range schema.Rules {
		if ruleRefs[r.Ref] {
			errs = append(errs, fmt.Errorf("rules[%d]: duplicate rule ref %q", i, r.Ref))
		}
		ruleRefs[r.Ref] = true
		errs = append(errs, validateRuleRefs(i, r, kinds)...)
	}
	for i, ra := range schema.Reassignments {
		if !ruleRefs[ra.Rule] {
			errs = append(errs, fmt.Errorf("reassignments[%d]: unknown rule ref %q", i, ra.Rule))
		}
		if kind, ok := kinds[ra.To]; !ok {
			errs = append(errs, fmt.Errorf("reassignments[%d]: unknown target ref %q", i, ra.To))
		} else if kind != domain.KindChoice {
			errs = append(errs, fmt.Errorf("reassignments[%d]: target %q is a %s, not a choice", i, ra.To, kind))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	plan, err := Convert(schema)
	if err != nil {
		return []error{err}
	}
	for i, rule := range plan.Rules {
		if err := rules.Validate(rule, plan); err != nil {
			errs = append(errs, fmt.Errorf("rules[%d] %q: %w", i, schema.Rules[i].Ref, err))
		}
	}
	return errs
}

func validateRuleRefs(i int, r RuleImport, kinds map[string]domain.ItemKind) []error {
	var errs []error
	family := domain.RuleFamily(r.Family)
	if family.ParentKind() != "" {
		if r.Parent == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: %s rules need a parent", i, family))
		} else if _, ok := kinds[r.Parent]; !ok {
			errs = append(errs, fmt.Errorf("rules[%d]: unknown parent ref %q", i, r.Parent))
		}
	} else if r.Parent != "" {
		errs = append(errs, fmt.Errorf("rules[%d]: option rules take an option, not a parent", i))
	}
	for j, it := range r.Items {
		if _, ok := kinds[it.Ref]; !ok {
			errs = append(errs, fmt.Errorf("rules[%d].items[%d]: unknown item ref %q", i, j, it.Ref))
		}
	}
	return errs
}
