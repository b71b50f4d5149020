package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/choicetree/internal/consistency"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/rules"
)

type ruleService struct {
	store    Persistence
	guard    *Guard
	observer UseCaseObserver
}

func NewRuleService(store Persistence, guard *Guard, observers ...UseCaseObserver) RuleService {
	return &ruleService{
		store:    store,
		guard:    guard,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *ruleService) SaveRule(ctx context.Context, ws *Workspace, rule domain.Rule, confirm bool) (result *MutationResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"rule_id": rule.ID, "family": string(rule.Family), "items": len(rule.Items)}
	defer func() {
		observeMutation(ctx, s.observer, "save-rule", startedAt, fields, result, err)
	}()

	release, err := s.guard.Acquire(ws.VersionID())
	if err != nil {
		return nil, err
	}
	defer release()

	rule.TreeVersionID = ws.VersionID()
	if err = rules.Validate(rule, ws.Tree); err != nil {
		return nil, err
	}

	var original domain.Rule
	if rule.ID != 0 {
		var ok bool
		if original, ok = ws.Rules.Get(rule.ID); !ok {
			return nil, fmt.Errorf("rule %d: %w", rule.ID, domain.ErrNotFound)
		}
		rule = carryAssociationIDs(original, rule)
	}

	result, err = s.gate(ctx, ws, consistency.RuleSave(original, rule), confirm)
	if err != nil || !result.Applied {
		return result, err
	}

	saved := rule.Clone()
	if err = s.store.SaveRule(ctx, &saved, result.Decision.Cascade()); err != nil {
		return nil, err
	}
	labelItems(ws, &saved)
	ws.Rules.Save(saved)
	ws.refreshHasRules()

	result.Rule = &saved
	fields["rule_id"] = saved.ID
	return result, nil
}

func (s *ruleService) DeleteRule(ctx context.Context, ws *Workspace, ruleID int64, confirm bool) (result *MutationResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"rule_id": ruleID}
	defer func() {
		observeMutation(ctx, s.observer, "delete-rule", startedAt, fields, result, err)
	}()

	release, err := s.guard.Acquire(ws.VersionID())
	if err != nil {
		return nil, err
	}
	defer release()

	rule, ok := ws.Rules.Get(ruleID)
	if !ok {
		return &MutationResult{Decision: consistency.Decision{Outcome: consistency.ProceedNoCascade}, Applied: true}, nil
	}

	result, err = s.gate(ctx, ws, consistency.RuleDelete(rule), confirm)
	if err != nil || !result.Applied {
		return result, err
	}
	if err = s.store.DeleteRuleAssociations(ctx, ruleID, result.Decision.Cascade()); err != nil {
		return nil, err
	}
	ws.Rules.Delete(ruleID)
	ws.refreshHasRules()
	return result, nil
}

// RemoveRuleItem drops every item of the rule that references itemID. A
// rule left without items is deleted instead of saved empty.
func (s *ruleService) RemoveRuleItem(ctx context.Context, ws *Workspace, ruleID, itemID int64, confirm bool) (result *MutationResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"rule_id": ruleID, "item_id": itemID}
	defer func() {
		observeMutation(ctx, s.observer, "remove-rule-item", startedAt, fields, result, err)
	}()

	release, err := s.guard.Acquire(ws.VersionID())
	if err != nil {
		return nil, err
	}
	defer release()

	rule, ok := ws.Rules.Get(ruleID)
	if !ok || !rule.HasItem(itemID) {
		return &MutationResult{Decision: consistency.Decision{Outcome: consistency.ProceedNoCascade}, Applied: true}, nil
	}

	result, err = s.gate(ctx, ws, consistency.RuleItemDelete(rule, itemID), confirm)
	if err != nil || !result.Applied {
		return result, err
	}

	kept := rule.Clone()
	kept.Items = kept.Items[:0]
	for _, it := range rule.Items {
		if it.ItemID != itemID {
			kept.Items = append(kept.Items, it)
		}
	}
	if len(kept.Items) == 0 {
		fields["rule_deleted"] = true
		if err = s.store.DeleteRuleAssociations(ctx, ruleID, result.Decision.Cascade()); err != nil {
			return nil, err
		}
		ws.Rules.Delete(ruleID)
		ws.refreshHasRules()
		return result, nil
	}

	if err = s.store.SaveRule(ctx, &kept, result.Decision.Cascade()); err != nil {
		return nil, err
	}
	labelItems(ws, &kept)
	ws.Rules.Save(kept)
	ws.refreshHasRules()
	result.Rule = &kept
	return result, nil
}

// ToggleMustHave flips the type of every item in one mapping and persists
// the rule. No item leaves the rule, so the ledger is not consulted.
func (s *ruleService) ToggleMustHave(ctx context.Context, ws *Workspace, ruleID int64, mappingIndex int) (saved *domain.Rule, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"rule_id": ruleID, "mapping_index": mappingIndex}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "toggle-must-have",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	release, err := s.guard.Acquire(ws.VersionID())
	if err != nil {
		return nil, err
	}
	defer release()

	rule, ok := ws.Rules.Get(ruleID)
	if !ok {
		return nil, fmt.Errorf("rule %d: %w", ruleID, domain.ErrNotFound)
	}
	toggled, err := rules.ToggleMustHave(rule, mappingIndex)
	if err != nil {
		return nil, err
	}
	if err = s.store.SaveRule(ctx, &toggled, false); err != nil {
		return nil, err
	}
	labelItems(ws, &toggled)
	ws.Rules.Save(toggled)
	return &toggled, nil
}

// gate runs the checker and applies the confirmation rule.
func (s *ruleService) gate(ctx context.Context, ws *Workspace, change consistency.Change, confirm bool) (*MutationResult, error) {
	decision, err := decide(ctx, s.store, ws, change, nil)
	if err != nil {
		return nil, err
	}
	return confirmGate(decision, confirm), nil
}

// confirmGate turns a decision into a result. The result is not Applied
// when a confirmation is still missing.
func confirmGate(decision consistency.Decision, confirm bool) *MutationResult {
	result := &MutationResult{Decision: decision, Applied: true}
	if decision.NeedsConfirmation() {
		if !confirm {
			result.Applied = false
			return result
		}
		result.Decision = decision.Confirm()
	}
	return result
}

// decide loads the ledger entries keyed on the removed associations, merges
// extra, and runs the checker against the committed rule set.
func decide(ctx context.Context, store Persistence, ws *Workspace, change consistency.Change, extra []domain.AttributeReassignment) (consistency.Decision, error) {
	var assocs []int64
	for _, it := range change.Removed {
		if it.ID != 0 {
			assocs = append(assocs, it.ID)
		}
	}
	ledger, err := store.ReassignmentsForAssociations(ctx, assocs)
	if err != nil {
		return consistency.Decision{}, fmt.Errorf("reading reassignments: %w", err)
	}
	return ws.Checker().Check(change, mergeLedger(ledger, extra)), nil
}

func mergeLedger(a, b []domain.AttributeReassignment) []domain.AttributeReassignment {
	seen := make(map[int64]bool, len(a)+len(b))
	var out []domain.AttributeReassignment
	for _, list := range [][]domain.AttributeReassignment{a, b} {
		for _, r := range list {
			if !seen[r.ID] {
				seen[r.ID] = true
				out = append(out, r)
			}
		}
	}
	return out
}

// carryAssociationIDs gives items of saved that match an original item by
// tree item and mapping index the original's association id, so an edit
// that keeps an item keeps its reassignments.
func carryAssociationIDs(original, saved domain.Rule) domain.Rule {
	type key struct {
		item    int64
		mapping int
	}
	ids := make(map[key]int64, len(original.Items))
	for _, it := range original.Items {
		ids[key{it.ItemID, it.MappingIndex}] = it.ID
	}
	out := saved.Clone()
	used := make(map[int64]bool, len(out.Items))
	for i := range out.Items {
		it := &out.Items[i]
		if it.ID != 0 {
			used[it.ID] = true
			continue
		}
		if id, ok := ids[key{it.ItemID, it.MappingIndex}]; ok && !used[id] {
			it.ID = id
			used[id] = true
		}
	}
	if out.Revision == 0 {
		out.Revision = original.Revision
	}
	return out
}

func labelItems(ws *Workspace, rule *domain.Rule) {
	for i := range rule.Items {
		if rule.Items[i].Label == "" {
			rule.Items[i].Label = ws.Tree.Label(rule.Items[i].ItemID)
		}
	}
}

func observeMutation(ctx context.Context, obs UseCaseObserver, name string, startedAt time.Time, fields map[string]any, result *MutationResult, err error) {
	if result != nil {
		fields["outcome"] = result.Decision.Outcome.String()
		fields["applied"] = result.Applied
	}
	if errors.Is(err, domain.ErrBusy) {
		fields["busy"] = true
	}
	obs.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}
