package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/choicetree/internal/consistency"
	"github.com/alexanderramin/choicetree/internal/domain"
)

type itemService struct {
	store    Persistence
	guard    *Guard
	observer UseCaseObserver
}

func NewItemService(store Persistence, guard *Guard, observers ...UseCaseObserver) ItemService {
	return &itemService{
		store:    store,
		guard:    guard,
		observer: useCaseObserverOrNoop(observers),
	}
}

// DeleteItem deletes a point or choice (or any other tree item) with its
// subtree. Reassignments that would lose their choice require confirmation;
// a declined delete changes nothing.
func (s *itemService) DeleteItem(ctx context.Context, ws *Workspace, itemID int64, confirm bool) (result *MutationResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"item_id": itemID}
	defer func() {
		observeMutation(ctx, s.observer, "delete-item", startedAt, fields, result, err)
	}()

	release, err := s.guard.Acquire(ws.VersionID())
	if err != nil {
		return nil, err
	}
	defer release()

	ref, ok := ws.Tree.Lookup(itemID)
	if !ok {
		return &MutationResult{Decision: consistency.Decision{Outcome: consistency.ProceedNoCascade}, Applied: true}, nil
	}
	node := ws.Tree.Node(ref)
	fields["kind"] = string(node.Kind)

	subtree := appendSubtreeIDs(ws, ref, nil)

	referencing, err := s.store.ReassignmentsReferencingItems(ctx, subtree)
	if err != nil {
		return nil, fmt.Errorf("reading reassignments: %w", err)
	}
	change := consistency.ItemDelete(ws.Tree, ws.Rules, ref)
	decision, err := decide(ctx, s.store, ws, change, referencing)
	if err != nil {
		return nil, err
	}
	result = confirmGate(decision, confirm)
	if !result.Applied {
		return result, nil
	}

	result.Impact, err = s.store.DeleteItem(ctx, itemID, node.Kind, result.Decision.Cascade())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	removed, err := ws.Tree.RemoveChild(ref)
	if err != nil {
		// The guard keeps ref live between Lookup and here; reaching this
		// means the workspace no longer matches the database.
		return nil, fmt.Errorf("removing item %d from workspace: %w", itemID, err)
	}
	ws.Rules.DropItems(removed)
	ws.refreshHasRules()
	fields["removed_items"] = len(removed)
	return result, nil
}

func appendSubtreeIDs(ws *Workspace, ref int, out []int64) []int64 {
	if id := ws.Tree.Node(ref).ID; id != 0 {
		out = append(out, id)
	}
	for _, c := range ws.Tree.Children(ref) {
		out = appendSubtreeIDs(ws, c, out)
	}
	return out
}
