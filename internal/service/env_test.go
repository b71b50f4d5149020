package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/repository"
	"github.com/alexanderramin/choicetree/internal/testutil"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db      *sql.DB
	kitchen testutil.Kitchen
	store   Persistence
	guard   *Guard
	trees   TreeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	store := NewSQLPersistence(uow)
	return &testEnv{
		db:      database,
		kitchen: testutil.SeedKitchen(t, database),
		store:   store,
		guard:   NewGuard(),
		trees:   NewTreeService(uow, store),
	}
}

// seedRule persists a must-have point-to-choice rule parented by the
// Hardware point.
func (e *testEnv) seedRule(t *testing.T, itemIDs ...int64) *domain.Rule {
	t.Helper()
	rule := testutil.NewTestRule(e.kitchen.VersionID, domain.FamilyPointToChoice, e.kitchen.Hardware, e.kitchen.Style, itemIDs)
	require.NoError(t, repository.NewSQLiteRuleRepo(e.db).Save(context.Background(), rule))
	return rule
}

func (e *testEnv) load(t *testing.T) *Workspace {
	t.Helper()
	ws, err := e.trees.Load(context.Background(), e.kitchen.VersionID)
	require.NoError(t, err)
	return ws
}

// failingStore returns a Persistence whose transactions fail on the nth
// exec.
func (e *testEnv) failingStore(n int32) (Persistence, *testutil.FailOnNthExecUoW) {
	uow := &testutil.FailOnNthExecUoW{DB: e.db, FailOn: n}
	return NewSQLPersistence(uow), uow
}

func (e *testEnv) storedRule(t *testing.T, id int64) *domain.Rule {
	t.Helper()
	rule, err := repository.NewSQLiteRuleRepo(e.db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return rule
}
