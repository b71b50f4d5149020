package repository

import (
	"context"

	"github.com/alexanderramin/choicetree/internal/domain"
)

type TreeVersionRepo interface {
	Create(ctx context.Context, v *domain.TreeVersion) error
	GetByID(ctx context.Context, id string) (*domain.TreeVersion, error)
	List(ctx context.Context) ([]*domain.TreeVersion, error)
}

type TreeItemRepo interface {
	Create(ctx context.Context, item *domain.TreeItem) error
	GetByID(ctx context.Context, id int64) (*domain.TreeItem, error)
	ListByVersion(ctx context.Context, versionID string) ([]domain.TreeItem, error)
	// ListSubtree returns the item and every descendant, parents first.
	ListSubtree(ctx context.Context, id int64) ([]domain.TreeItem, error)
	UpdatePlacement(ctx context.Context, id, parentID int64, sortOrder int) error
	CompactSiblings(ctx context.Context, versionID string, parentID int64) error
	Delete(ctx context.Context, id int64) error
}

type RuleRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Rule, error)
	ListByVersion(ctx context.Context, versionID string) ([]domain.Rule, error)
	// ListByItem returns rules whose parent is itemID or whose items
	// reference it.
	ListByItem(ctx context.Context, itemID int64) ([]domain.Rule, error)
	ListTouchingItems(ctx context.Context, itemIDs []int64) ([]domain.Rule, error)
	// Save upserts the rule and its items. Kept items retain their
	// association ids; new items get fresh ones.
	Save(ctx context.Context, rule *domain.Rule) error
	// Delete removes the rule and its items. It reports false when the
	// rule was already gone.
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteEmpty(ctx context.Context, versionID string) (int64, error)
}

type ReassignmentRepo interface {
	Create(ctx context.Context, r *domain.AttributeReassignment) error
	ListByVersion(ctx context.Context, versionID string) ([]domain.AttributeReassignment, error)
	ListByAssociations(ctx context.Context, associationIDs []int64) ([]domain.AttributeReassignment, error)
	// ListReferencingItems returns reassignments that target one of
	// itemIDs or are keyed on an association referencing one.
	ListReferencingItems(ctx context.Context, itemIDs []int64) ([]domain.AttributeReassignment, error)
	// ChoicesWithReassignments returns the distinct ids among itemIDs that
	// some reassignment references.
	ChoicesWithReassignments(ctx context.Context, itemIDs []int64) ([]int64, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}
