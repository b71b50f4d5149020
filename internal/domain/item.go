package domain

import "time"

// TreeVersion is one editable revision of a decision tree catalog.
type TreeVersion struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// TreeItem is the persisted record of a catalog node. A zero ID means the
// item has not been saved yet.
type TreeItem struct {
	ID             int64
	TreeVersionID  string
	Kind           ItemKind
	ParentID       int64 // 0 for groups
	Label          string
	SortOrder      int
	IsActive       bool
	IntegrationKey string
}

// DeleteImpact describes which derived rule-presence flags a caller must
// recompute after a tree item was deleted.
type DeleteImpact struct {
	RemovedItemIDs          []int64
	AffectedPoints          []int64
	AffectedIntegrationKeys []string
}
