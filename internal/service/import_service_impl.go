package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/importer"
	"github.com/alexanderramin/choicetree/internal/repository"
	"github.com/google/uuid"
)

type importService struct {
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewImportService(uow db.UnitOfWork, observers ...UseCaseObserver) ImportService {
	return &importService{uow: uow, observer: useCaseObserverOrNoop(observers)}
}

func (s *importService) ImportCatalog(ctx context.Context, filePath string) (*ImportResult, error) {
	schema, err := importer.LoadCatalogSchema(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.ImportCatalogSchema(ctx, schema)
}

// ImportCatalogSchema creates a new tree version from schema in a single
// transaction: a failure anywhere leaves nothing behind.
func (s *importService) ImportCatalogSchema(ctx context.Context, schema *importer.CatalogSchema) (result *ImportResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "import-catalog",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if errs := importer.ValidateCatalogSchema(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}
	plan, err := importer.Convert(schema)
	if err != nil {
		return nil, fmt.Errorf("converting import schema: %w", err)
	}

	version := &domain.TreeVersion{ID: uuid.New().String(), Name: plan.VersionName, CreatedAt: time.Now().UTC()}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txVersions := repository.NewSQLiteTreeVersionRepo(tx)
		txItems := repository.NewSQLiteTreeItemRepo(tx)
		txRules := repository.NewSQLiteRuleRepo(tx)
		txLedger := repository.NewSQLiteReassignmentRepo(tx)

		if err := txVersions.Create(ctx, version); err != nil {
			return fmt.Errorf("creating tree version: %w", err)
		}

		// Items arrive parents first, so every parent id is already mapped.
		realID := make(map[int64]int64, len(plan.Items))
		for _, it := range plan.Items {
			provisional := it.ID
			it.ID = 0
			it.TreeVersionID = version.ID
			it.ParentID = realID[it.ParentID]
			if err := txItems.Create(ctx, &it); err != nil {
				return fmt.Errorf("creating %s %q: %w", it.Kind, it.Label, err)
			}
			realID[provisional] = it.ID
		}

		saved := make([]domain.Rule, len(plan.Rules))
		for i, rule := range plan.Rules {
			rule = rule.Clone()
			rule.TreeVersionID = version.ID
			rule.ParentID = realID[rule.ParentID]
			for j := range rule.Items {
				rule.Items[j].ItemID = realID[rule.Items[j].ItemID]
				rule.Items[j].PointID = realID[rule.Items[j].PointID]
			}
			if err := txRules.Save(ctx, &rule); err != nil {
				return fmt.Errorf("creating rule %d: %w", i, err)
			}
			saved[i] = rule
		}

		for _, pr := range plan.Reassignments {
			a := domain.AttributeReassignment{
				TreeVersionID:     version.ID,
				ToChoiceID:        realID[pr.ToChoiceID],
				RuleAssociationID: saved[pr.RuleIndex].Items[pr.ItemIndex].ID,
				AttributeGroupID:  pr.AttributeGroupID,
			}
			if err := txLedger.Create(ctx, &a); err != nil {
				return fmt.Errorf("creating reassignment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result = &ImportResult{
		Version:           version,
		ItemCount:         len(plan.Items),
		RuleCount:         len(plan.Rules),
		ReassignmentCount: len(plan.Reassignments),
	}
	fields["tree_version"] = version.ID
	fields["items"] = result.ItemCount
	fields["rules"] = result.RuleCount
	return result, nil
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("%d errors:", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return domain.Invalid("import", "%s", msg)
}
