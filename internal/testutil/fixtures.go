package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/google/uuid"
)

var testLabelCounter atomic.Int64

// TreeVersion options
type VersionOption func(*domain.TreeVersion)

func WithVersionID(id string) VersionOption {
	return func(v *domain.TreeVersion) {
		v.ID = id
	}
}

func NewTestVersion(name string, opts ...VersionOption) *domain.TreeVersion {
	v := &domain.TreeVersion{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// TreeItem options
type ItemOption func(*domain.TreeItem)

func WithSortOrder(n int) ItemOption {
	return func(i *domain.TreeItem) {
		i.SortOrder = n
	}
}

func WithInactive() ItemOption {
	return func(i *domain.TreeItem) {
		i.IsActive = false
	}
}

func WithIntegrationKey(key string) ItemOption {
	return func(i *domain.TreeItem) {
		i.IntegrationKey = key
	}
}

// NewTestItem builds an unsaved item. An empty label gets a unique one.
func NewTestItem(versionID string, kind domain.ItemKind, parentID int64, label string, opts ...ItemOption) *domain.TreeItem {
	if label == "" {
		label = fmt.Sprintf("%s %d", kind, testLabelCounter.Add(1))
	}
	i := &domain.TreeItem{
		TreeVersionID: versionID,
		Kind:          kind,
		ParentID:      parentID,
		Label:         label,
		SortOrder:     1,
		IsActive:      true,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Rule options
type RuleOption func(*domain.Rule)

func WithRuleType(t domain.RuleType) RuleOption {
	return func(r *domain.Rule) {
		r.TypeID = t
		for i := range r.Items {
			r.Items[i].TypeID = t
		}
	}
}

func WithOptionKey(key string) RuleOption {
	return func(r *domain.Rule) {
		r.IntegrationKey = key
	}
}

// NewTestRule builds an unsaved must-have rule whose items reference
// itemIDs, all under mapping 0 and the given point.
func NewTestRule(versionID string, family domain.RuleFamily, parentID, pointID int64, itemIDs []int64, opts ...RuleOption) *domain.Rule {
	r := &domain.Rule{
		TreeVersionID: versionID,
		Family:        family,
		ParentID:      parentID,
		TypeID:        domain.RuleMustHave,
	}
	for _, id := range itemIDs {
		r.Items = append(r.Items, domain.RuleItem{ItemID: id, PointID: pointID, TypeID: domain.RuleMustHave})
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Kitchen is the seeded catalog:
//
//	Kitchen > Cabinets > Style > [Shaker, Flat Panel]
//	                   > Hardware > [Knobs, Pulls]
type Kitchen struct {
	VersionID string
	Kitchen   int64
	Cabinets  int64
	Style     int64
	Shaker    int64
	FlatPanel int64
	Hardware  int64
	Knobs     int64
	Pulls     int64
}

// SeedKitchen writes the Kitchen catalog with raw SQL so repository tests
// can use it without importing the package under test.
func SeedKitchen(t *testing.T, database *sql.DB) Kitchen {
	t.Helper()
	ctx := context.Background()
	k := Kitchen{VersionID: uuid.New().String()}

	_, err := database.ExecContext(ctx, `INSERT INTO tree_versions (id, name, created_at) VALUES (?, ?, ?)`,
		k.VersionID, "Kitchen", time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("seeding tree version: %v", err)
	}

	insert := func(kind domain.ItemKind, parent int64, label string, order int) int64 {
		var parentArg any
		if parent != 0 {
			parentArg = parent
		}
		res, err := database.ExecContext(ctx, `INSERT INTO tree_items (tree_version_id, kind, parent_id, label, sort_order)
			VALUES (?, ?, ?, ?, ?)`, k.VersionID, string(kind), parentArg, label, order)
		if err != nil {
			t.Fatalf("seeding %s %q: %v", kind, label, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			t.Fatalf("seeding %s %q: %v", kind, label, err)
		}
		return id
	}

	k.Kitchen = insert(domain.KindGroup, 0, "Kitchen", 1)
	k.Cabinets = insert(domain.KindSubGroup, k.Kitchen, "Cabinets", 1)
	k.Style = insert(domain.KindPoint, k.Cabinets, "Style", 1)
	k.Shaker = insert(domain.KindChoice, k.Style, "Shaker", 1)
	k.FlatPanel = insert(domain.KindChoice, k.Style, "Flat Panel", 2)
	k.Hardware = insert(domain.KindPoint, k.Cabinets, "Hardware", 2)
	k.Knobs = insert(domain.KindChoice, k.Hardware, "Knobs", 1)
	k.Pulls = insert(domain.KindChoice, k.Hardware, "Pulls", 2)
	return k
}

// SeedReassignment writes one ledger entry.
func SeedReassignment(t *testing.T, database *sql.DB, versionID string, toChoiceID, associationID, groupID int64) int64 {
	t.Helper()
	res, err := database.Exec(`INSERT INTO attribute_reassignments (tree_version_id, to_choice_id, rule_association_id, attribute_group_id)
		VALUES (?, ?, ?, ?)`, versionID, toChoiceID, associationID, groupID)
	if err != nil {
		t.Fatalf("seeding reassignment: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seeding reassignment: %v", err)
	}
	return id
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, database *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}
