package service

import (
	"context"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/consistency"
	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/importer"
)

// MutationResult reports what a destructive workflow decided and did.
// Applied is false when the checker asked for a confirmation the caller had
// not given; nothing was written in that case.
type MutationResult struct {
	Decision consistency.Decision
	Applied  bool
	Rule     *domain.Rule
	Impact   domain.DeleteImpact
}

type TreeService interface {
	CreateVersion(ctx context.Context, name string) (*domain.TreeVersion, error)
	ListVersions(ctx context.Context) ([]*domain.TreeVersion, error)
	Load(ctx context.Context, versionID string) (*Workspace, error)
	RulesForItem(ctx context.Context, itemID int64, kind domain.ItemKind) ([]domain.Rule, error)
	ChoicesWithReassignments(ctx context.Context, itemIDs []int64) ([]int64, error)
	Reassignments(ctx context.Context, versionID string) ([]domain.AttributeReassignment, error)
}

type RuleService interface {
	SaveRule(ctx context.Context, ws *Workspace, rule domain.Rule, confirm bool) (*MutationResult, error)
	DeleteRule(ctx context.Context, ws *Workspace, ruleID int64, confirm bool) (*MutationResult, error)
	RemoveRuleItem(ctx context.Context, ws *Workspace, ruleID, itemID int64, confirm bool) (*MutationResult, error)
	ToggleMustHave(ctx context.Context, ws *Workspace, ruleID int64, mappingIndex int) (*domain.Rule, error)
}

type ItemService interface {
	DeleteItem(ctx context.Context, ws *Workspace, itemID int64, confirm bool) (*MutationResult, error)
}

type SortService interface {
	Move(ctx context.Context, ws *Workspace, itemID, newParentID int64, toIndex int) (catalog.SortBatch, error)
	AddItem(ctx context.Context, ws *Workspace, parentID int64, kind domain.ItemKind, label string) (int64, error)
}

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Version           *domain.TreeVersion
	ItemCount         int
	RuleCount         int
	ReassignmentCount int
}

type ImportService interface {
	ImportCatalog(ctx context.Context, filePath string) (*ImportResult, error)
	ImportCatalogSchema(ctx context.Context, schema *importer.CatalogSchema) (*ImportResult, error)
}
