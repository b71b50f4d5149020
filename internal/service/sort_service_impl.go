package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/domain"
)

type sortService struct {
	store    Persistence
	guard    *Guard
	observer UseCaseObserver
}

func NewSortService(store Persistence, guard *Guard, observers ...UseCaseObserver) SortService {
	return &sortService{
		store:    store,
		guard:    guard,
		observer: useCaseObserverOrNoop(observers),
	}
}

// Move places a point or choice at toIndex among the children of
// newParentID and persists every renumbered sibling. On failure the tree is
// restored to its pre-move state.
func (s *sortService) Move(ctx context.Context, ws *Workspace, itemID, newParentID int64, toIndex int) (batch catalog.SortBatch, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"item_id": itemID, "parent_id": newParentID, "to_index": toIndex}
	defer func() {
		s.observe(ctx, "move-item", startedAt, fields, err)
	}()

	release, err := s.guard.Acquire(ws.VersionID())
	if err != nil {
		return catalog.SortBatch{}, err
	}
	defer release()

	ref, ok := ws.Tree.Lookup(itemID)
	if !ok {
		return catalog.SortBatch{}, fmt.Errorf("tree item %d: %w", itemID, domain.ErrNotFound)
	}
	if err = sortable(ws.Tree.Node(ref).Kind); err != nil {
		return catalog.SortBatch{}, err
	}
	parent, ok := ws.Tree.Lookup(newParentID)
	if !ok {
		return catalog.SortBatch{}, fmt.Errorf("parent item %d: %w", newParentID, domain.ErrNotFound)
	}

	session := catalog.BeginDrag(ws.Tree)
	if err = ws.Tree.MoveToParent(ref, parent, toIndex); err != nil {
		session.Cancel()
		return catalog.SortBatch{}, err
	}
	batch, err = s.commit(ctx, ws, session)
	fields["points"] = len(batch.Points)
	fields["choices"] = len(batch.Choices)
	return batch, err
}

// AddItem appends a new point or choice under parentID and persists it
// through the sort batch, which assigns its id.
func (s *sortService) AddItem(ctx context.Context, ws *Workspace, parentID int64, kind domain.ItemKind, label string) (id int64, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"parent_id": parentID, "kind": string(kind)}
	defer func() {
		s.observe(ctx, "add-item", startedAt, fields, err)
	}()

	if err = sortable(kind); err != nil {
		return 0, err
	}
	if label == "" {
		return 0, domain.Invalid("label", "label must not be empty")
	}

	release, err := s.guard.Acquire(ws.VersionID())
	if err != nil {
		return 0, err
	}
	defer release()

	parent, ok := ws.Tree.Lookup(parentID)
	if !ok {
		return 0, fmt.Errorf("parent item %d: %w", parentID, domain.ErrNotFound)
	}

	session := catalog.BeginDrag(ws.Tree)
	ref, err := ws.Tree.InsertChild(parent, domain.TreeItem{
		TreeVersionID: ws.VersionID(),
		Kind:          kind,
		Label:         label,
		IsActive:      true,
	})
	if err != nil {
		session.Cancel()
		return 0, err
	}
	if _, err = s.commit(ctx, ws, session); err != nil {
		return 0, err
	}
	id = ws.Tree.Node(ref).ID
	fields["item_id"] = id
	return id, nil
}

// commit persists the pending sort batch of session. A failed save cancels
// the session; a successful one assigns ids and clears the sort flags.
func (s *sortService) commit(ctx context.Context, ws *Workspace, session *catalog.DragSession) (catalog.SortBatch, error) {
	batch := session.Changes()
	if batch.Empty() {
		return batch, nil
	}
	assigned, err := s.store.SaveSortBatch(ctx, ws.VersionID(), batch)
	if err != nil {
		session.Cancel()
		return catalog.SortBatch{}, err
	}
	ws.Tree.ApplyIDs(assigned)
	ws.Tree.ResetSort()
	return batch, nil
}

func (s *sortService) observe(ctx context.Context, name string, startedAt time.Time, fields map[string]any, err error) {
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}

// sortable reports whether items of kind travel in sort batches. Only
// points and choices do; groups and subgroups keep their import order.
func sortable(kind domain.ItemKind) error {
	if kind != domain.KindPoint && kind != domain.KindChoice {
		return domain.Invalid("kind", "only points and choices can be sorted, got %q", kind)
	}
	return nil
}
