package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/repository"
	"github.com/google/uuid"
)

type treeService struct {
	uow      db.UnitOfWork
	store    Persistence
	observer UseCaseObserver
}

func NewTreeService(uow db.UnitOfWork, store Persistence, observers ...UseCaseObserver) TreeService {
	return &treeService{
		uow:      uow,
		store:    store,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *treeService) CreateVersion(ctx context.Context, name string) (*domain.TreeVersion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name", "tree version name must not be empty")
	}
	v := &domain.TreeVersion{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteTreeVersionRepo(tx).Create(ctx, v)
	})
	if err != nil {
		return nil, fmt.Errorf("creating tree version: %w", err)
	}
	return v, nil
}

func (s *treeService) ListVersions(ctx context.Context) (versions []*domain.TreeVersion, err error) {
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		versions, err = repository.NewSQLiteTreeVersionRepo(tx).List(ctx)
		return err
	})
	return versions, err
}

// Load reads a tree version with its items and rules into a workspace.
func (s *treeService) Load(ctx context.Context, versionID string) (ws *Workspace, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"tree_version": versionID}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "load-tree",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	version, items, loaded, err := s.store.LoadVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("loading tree version %s: %w", versionID, err)
	}
	fields["items"] = len(items)
	fields["rules"] = len(loaded)
	return NewWorkspace(*version, items, loaded)
}

func (s *treeService) RulesForItem(ctx context.Context, itemID int64, kind domain.ItemKind) ([]domain.Rule, error) {
	return s.store.FetchRulesForItem(ctx, itemID, kind)
}

func (s *treeService) ChoicesWithReassignments(ctx context.Context, itemIDs []int64) ([]int64, error) {
	return s.store.FetchReassignmentsReferencingItems(ctx, itemIDs)
}

func (s *treeService) Reassignments(ctx context.Context, versionID string) (out []domain.AttributeReassignment, err error) {
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		out, err = repository.NewSQLiteReassignmentRepo(tx).ListByVersion(ctx, versionID)
		return err
	})
	return out, err
}
