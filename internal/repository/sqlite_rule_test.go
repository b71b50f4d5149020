package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleRepo_SaveCreatesRuleAndItems(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	k := testutil.SeedKitchen(t, database)
	repo := NewSQLiteRuleRepo(database)

	rule := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.Shaker, k.FlatPanel})
	require.NoError(t, repo.Save(ctx, rule))

	assert.NotZero(t, rule.ID)
	assert.Equal(t, 1, rule.Revision)
	for _, it := range rule.Items {
		assert.NotZero(t, it.ID, "association id assigned")
		assert.Equal(t, rule.ID, it.RuleID)
	}

	got, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FamilyPointToChoice, got.Family)
	assert.Equal(t, k.Hardware, got.ParentID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Shaker", got.Items[0].Label)
	assert.Equal(t, k.Style, got.Items[0].PointID)
}

func TestRuleRepo_SaveUpdateKeepsAssociationIDs(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	k := testutil.SeedKitchen(t, database)
	repo := NewSQLiteRuleRepo(database)

	rule := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.Shaker, k.FlatPanel})
	require.NoError(t, repo.Save(ctx, rule))
	shakerAssoc := rule.Items[0].ID
	flatAssoc := rule.Items[1].ID

	// Drop Flat Panel, keep Shaker, add nothing new but flip the type.
	rule.Items = rule.Items[:1]
	rule.TypeID = domain.RuleOptional
	rule.Items[0].TypeID = domain.RuleOptional
	require.NoError(t, repo.Save(ctx, rule))
	assert.Equal(t, 2, rule.Revision)

	got, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, shakerAssoc, got.Items[0].ID)
	assert.Equal(t, domain.RuleOptional, got.Items[0].TypeID)
	assert.Equal(t, domain.RuleOptional, got.TypeID)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM rule_items WHERE id = ?`, flatAssoc).Scan(&n))
	assert.Zero(t, n)
}

func TestRuleRepo_SaveStaleRevisionConflicts(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	k := testutil.SeedKitchen(t, database)
	repo := NewSQLiteRuleRepo(database)

	rule := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.Shaker})
	require.NoError(t, repo.Save(ctx, rule))

	stale := rule.Clone()
	require.NoError(t, repo.Save(ctx, rule))

	err := repo.Save(ctx, &stale)
	assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)
}

func TestRuleRepo_SaveVanishedRuleNotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	k := testutil.SeedKitchen(t, database)
	repo := NewSQLiteRuleRepo(database)

	rule := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.Shaker})
	require.NoError(t, repo.Save(ctx, rule))
	_, err := repo.Delete(ctx, rule.ID)
	require.NoError(t, err)

	err = repo.Save(ctx, rule)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRuleRepo_SaveRejectsForeignAssociation(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	k := testutil.SeedKitchen(t, database)
	repo := NewSQLiteRuleRepo(database)

	a := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.Shaker})
	b := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Style, k.Hardware, []int64{k.Knobs})
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	b.Items = append(b.Items, a.Items[0])
	err := repo.Save(ctx, b)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestRuleRepo_ListByItemAndVersion(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	k := testutil.SeedKitchen(t, database)
	repo := NewSQLiteRuleRepo(database)

	parented := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Style, k.Hardware, []int64{k.Knobs})
	referencing := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.Shaker})
	option := testutil.NewTestRule(k.VersionID, domain.FamilyOptionToChoice, 0, k.Hardware, []int64{k.Pulls},
		testutil.WithOptionKey("OPT-1"))
	for _, r := range []*domain.Rule{parented, referencing, option} {
		require.NoError(t, repo.Save(ctx, r))
	}

	byStyle, err := repo.ListByItem(ctx, k.Style)
	require.NoError(t, err)
	require.Len(t, byStyle, 1)
	assert.Equal(t, parented.ID, byStyle[0].ID)

	byShaker, err := repo.ListByItem(ctx, k.Shaker)
	require.NoError(t, err)
	require.Len(t, byShaker, 1)
	assert.Equal(t, referencing.ID, byShaker[0].ID)

	all, err := repo.ListByVersion(ctx, k.VersionID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(0), all[2].ParentID)
	assert.Equal(t, "OPT-1", all[2].IntegrationKey)
}

func TestRuleRepo_DeleteAlreadyGone(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLiteRuleRepo(database)

	deleted, err := repo.Delete(context.Background(), 12345)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRuleRepo_DeleteEmpty(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	k := testutil.SeedKitchen(t, database)
	repo := NewSQLiteRuleRepo(database)
	items := NewSQLiteTreeItemRepo(database)

	rule := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.Shaker})
	keep := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.FlatPanel})
	require.NoError(t, repo.Save(ctx, rule))
	require.NoError(t, repo.Save(ctx, keep))

	require.NoError(t, items.Delete(ctx, k.Shaker))
	n, err := repo.DeleteEmpty(ctx, k.VersionID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(ctx, rule.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = repo.GetByID(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestRuleRepo_ListTouchingItems(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	k := testutil.SeedKitchen(t, database)
	repo := NewSQLiteRuleRepo(database)

	parented := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Style, k.Hardware, []int64{k.Knobs})
	referencing := testutil.NewTestRule(k.VersionID, domain.FamilyPointToChoice, k.Hardware, k.Style, []int64{k.FlatPanel})
	unrelated := testutil.NewTestRule(k.VersionID, domain.FamilyChoiceToChoice, k.Knobs, k.Hardware, []int64{k.Pulls})
	for _, r := range []*domain.Rule{parented, referencing, unrelated} {
		require.NoError(t, repo.Save(ctx, r))
	}

	got, err := repo.ListTouchingItems(ctx, []int64{k.Style, k.Shaker, k.FlatPanel})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, parented.ID, got[0].ID)
	assert.Equal(t, referencing.ID, got[1].ID)

	none, err := repo.ListTouchingItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
