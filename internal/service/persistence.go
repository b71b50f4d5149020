package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/repository"
)

// Persistence is the storage collaborator the workflows commit through.
// Every method runs in its own transaction; a returned error means nothing
// was written.
type Persistence interface {
	LoadVersion(ctx context.Context, versionID string) (*domain.TreeVersion, []domain.TreeItem, []domain.Rule, error)
	FetchRulesForItem(ctx context.Context, itemID int64, kind domain.ItemKind) ([]domain.Rule, error)
	// FetchReassignmentsReferencingItems returns the ids among itemIDs that
	// some reassignment references.
	FetchReassignmentsReferencingItems(ctx context.Context, itemIDs []int64) ([]int64, error)
	ReassignmentsForAssociations(ctx context.Context, associationIDs []int64) ([]domain.AttributeReassignment, error)
	ReassignmentsReferencingItems(ctx context.Context, itemIDs []int64) ([]domain.AttributeReassignment, error)
	// SaveRule upserts rule. With cascade, reassignments keyed on
	// associations the save removes are deleted in the same transaction.
	SaveRule(ctx context.Context, rule *domain.Rule, cascade bool) error
	// DeleteRuleAssociations deletes a rule and its items, plus the
	// reassignments keyed on them when cascade is set. Deleting an
	// already-gone rule succeeds.
	DeleteRuleAssociations(ctx context.Context, ruleID int64, cascade bool) error
	// SaveSortBatch writes sort orders and inserts unsaved items. It returns
	// the ids assigned to unsaved items keyed by temp key.
	SaveSortBatch(ctx context.Context, versionID string, batch catalog.SortBatch) (map[string]int64, error)
	DeleteItem(ctx context.Context, itemID int64, kind domain.ItemKind, cascade bool) (domain.DeleteImpact, error)
}

type sqlPersistence struct {
	uow db.UnitOfWork
}

// NewSQLPersistence returns a Persistence backed by the repositories,
// scoped to uow transactions.
func NewSQLPersistence(uow db.UnitOfWork) Persistence {
	return &sqlPersistence{uow: uow}
}

func (p *sqlPersistence) LoadVersion(ctx context.Context, versionID string) (version *domain.TreeVersion, items []domain.TreeItem, rules []domain.Rule, err error) {
	err = p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		version, err = repository.NewSQLiteTreeVersionRepo(tx).GetByID(ctx, versionID)
		if err != nil {
			return err
		}
		if items, err = repository.NewSQLiteTreeItemRepo(tx).ListByVersion(ctx, versionID); err != nil {
			return err
		}
		rules, err = repository.NewSQLiteRuleRepo(tx).ListByVersion(ctx, versionID)
		return err
	})
	return version, items, rules, err
}

func (p *sqlPersistence) FetchRulesForItem(ctx context.Context, itemID int64, kind domain.ItemKind) (rules []domain.Rule, err error) {
	err = p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		item, err := repository.NewSQLiteTreeItemRepo(tx).GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Kind != kind {
			return domain.Invalid("kind", "item %d is a %s, not a %s", itemID, item.Kind, kind)
		}
		rules, err = repository.NewSQLiteRuleRepo(tx).ListByItem(ctx, itemID)
		return err
	})
	return rules, err
}

func (p *sqlPersistence) FetchReassignmentsReferencingItems(ctx context.Context, itemIDs []int64) (ids []int64, err error) {
	err = p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		ids, err = repository.NewSQLiteReassignmentRepo(tx).ChoicesWithReassignments(ctx, itemIDs)
		return err
	})
	return ids, err
}

func (p *sqlPersistence) ReassignmentsForAssociations(ctx context.Context, associationIDs []int64) (out []domain.AttributeReassignment, err error) {
	err = p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		out, err = repository.NewSQLiteReassignmentRepo(tx).ListByAssociations(ctx, associationIDs)
		return err
	})
	return out, err
}

func (p *sqlPersistence) ReassignmentsReferencingItems(ctx context.Context, itemIDs []int64) (out []domain.AttributeReassignment, err error) {
	err = p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		out, err = repository.NewSQLiteReassignmentRepo(tx).ListReferencingItems(ctx, itemIDs)
		return err
	})
	return out, err
}

func (p *sqlPersistence) SaveRule(ctx context.Context, rule *domain.Rule, cascade bool) error {
	saved := rule.Clone()
	err := p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txRules := repository.NewSQLiteRuleRepo(tx)

		var removed []int64
		if saved.ID != 0 && cascade {
			stored, err := txRules.GetByID(ctx, saved.ID)
			if err != nil {
				return err
			}
			kept := make(map[int64]bool, len(saved.Items))
			for _, it := range saved.Items {
				kept[it.ID] = true
			}
			for _, it := range stored.Items {
				if !kept[it.ID] {
					removed = append(removed, it.ID)
				}
			}
		}

		if err := txRules.Save(ctx, &saved); err != nil {
			return err
		}
		return deleteKeyedReassignments(ctx, tx, removed)
	})
	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}
	*rule = saved
	return nil
}

func (p *sqlPersistence) DeleteRuleAssociations(ctx context.Context, ruleID int64, cascade bool) error {
	err := p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txRules := repository.NewSQLiteRuleRepo(tx)
		stored, err := txRules.GetByID(ctx, ruleID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if cascade {
			ids := make([]int64, len(stored.Items))
			for i, it := range stored.Items {
				ids[i] = it.ID
			}
			if err := deleteKeyedReassignments(ctx, tx, ids); err != nil {
				return err
			}
		}
		_, err = txRules.Delete(ctx, ruleID)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting rule %d: %w", ruleID, err)
	}
	return nil
}

func deleteKeyedReassignments(ctx context.Context, tx db.DBTX, associationIDs []int64) error {
	if len(associationIDs) == 0 {
		return nil
	}
	txLedger := repository.NewSQLiteReassignmentRepo(tx)
	keyed, err := txLedger.ListByAssociations(ctx, associationIDs)
	if err != nil {
		return err
	}
	ids := make([]int64, len(keyed))
	for i, r := range keyed {
		ids[i] = r.ID
	}
	_, err = txLedger.DeleteByIDs(ctx, ids)
	return err
}

func (p *sqlPersistence) SaveSortBatch(ctx context.Context, versionID string, batch catalog.SortBatch) (map[string]int64, error) {
	assigned := make(map[string]int64)
	err := p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txItems := repository.NewSQLiteTreeItemRepo(tx)
		// Points first so choices under a new point can resolve its id.
		for _, diffs := range [][]catalog.SortDiff{batch.Points, batch.Choices} {
			for _, d := range diffs {
				parentID := d.ParentID
				if parentID == 0 && d.ParentTempKey != "" {
					id, ok := assigned[d.ParentTempKey]
					if !ok {
						return domain.Invalid("parent", "parent of %q is not saved", d.Label)
					}
					parentID = id
				}
				if d.ID != 0 {
					if err := txItems.UpdatePlacement(ctx, d.ID, parentID, d.SortOrder); err != nil {
						return err
					}
					continue
				}
				item := domain.TreeItem{
					TreeVersionID:  versionID,
					Kind:           d.Kind,
					ParentID:       parentID,
					Label:          d.Label,
					SortOrder:      d.SortOrder,
					IsActive:       d.IsActive,
					IntegrationKey: d.IntegrationKey,
				}
				if err := txItems.Create(ctx, &item); err != nil {
					return err
				}
				assigned[d.TempKey] = item.ID
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("saving sort batch: %w", err)
	}
	return assigned, nil
}

func (p *sqlPersistence) DeleteItem(ctx context.Context, itemID int64, kind domain.ItemKind, cascade bool) (domain.DeleteImpact, error) {
	var impact domain.DeleteImpact
	err := p.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txItems := repository.NewSQLiteTreeItemRepo(tx)
		txRules := repository.NewSQLiteRuleRepo(tx)

		subtree, err := txItems.ListSubtree(ctx, itemID)
		if err != nil {
			return err
		}
		if len(subtree) == 0 {
			return fmt.Errorf("tree item %d: %w", itemID, domain.ErrNotFound)
		}
		if subtree[0].Kind != kind {
			return domain.Invalid("kind", "item %d is a %s, not a %s", itemID, subtree[0].Kind, kind)
		}
		versionID := subtree[0].TreeVersionID
		gone := make(map[int64]bool, len(subtree))
		for _, it := range subtree {
			gone[it.ID] = true
			impact.RemovedItemIDs = append(impact.RemovedItemIDs, it.ID)
		}

		touching, err := txRules.ListTouchingItems(ctx, impact.RemovedItemIDs)
		if err != nil {
			return err
		}
		var associations []int64
		points := make(map[int64]bool)
		keys := make(map[string]bool)
		for _, r := range touching {
			parented := r.Family.ParentKind() != "" && gone[r.ParentID]
			for _, it := range r.Items {
				if parented || gone[it.ItemID] {
					associations = append(associations, it.ID)
				}
			}
			if parented {
				continue
			}
			switch r.Family {
			case domain.FamilyPointToPoint, domain.FamilyPointToChoice:
				points[r.ParentID] = true
			case domain.FamilyChoiceToChoice:
				parent, err := txItems.GetByID(ctx, r.ParentID)
				if err != nil {
					return err
				}
				points[parent.ParentID] = true
			case domain.FamilyOptionToChoice:
				keys[r.IntegrationKey] = true
			}
		}
		impact.AffectedPoints = sortedIDs(points)
		impact.AffectedIntegrationKeys = sortedKeys(keys)

		if cascade {
			txLedger := repository.NewSQLiteReassignmentRepo(tx)
			byItem, err := txLedger.ListReferencingItems(ctx, impact.RemovedItemIDs)
			if err != nil {
				return err
			}
			byAssoc, err := txLedger.ListByAssociations(ctx, associations)
			if err != nil {
				return err
			}
			ids := make(map[int64]bool)
			for _, r := range append(byItem, byAssoc...) {
				ids[r.ID] = true
			}
			if _, err := txLedger.DeleteByIDs(ctx, sortedIDs(ids)); err != nil {
				return err
			}
		}

		if err := txItems.Delete(ctx, itemID); err != nil {
			return err
		}
		if err := txItems.CompactSiblings(ctx, versionID, subtree[0].ParentID); err != nil {
			return err
		}
		_, err = txRules.DeleteEmpty(ctx, versionID)
		return err
	})
	if err != nil {
		return domain.DeleteImpact{}, fmt.Errorf("deleting item %d: %w", itemID, err)
	}
	return impact, nil
}

func sortedIDs(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
