package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/choicetree/internal/domain"
	"github.com/alexanderramin/choicetree/internal/importer"
	"github.com/alexanderramin/choicetree/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kitchenYAML = `version:
  name: Kitchen 2027
groups:
  - ref: kitchen
    label: Kitchen
    subgroups:
      - ref: cabinets
        label: Cabinets
        points:
          - ref: style
            label: Style
            choices:
              - {ref: shaker, label: Shaker}
              - {ref: flat, label: Flat Panel}
          - ref: hardware
            label: Hardware
            choices:
              - {ref: knobs, label: Knobs}
              - {ref: pulls, label: Pulls}
rules:
  - ref: r1
    family: choice_to_choice
    parent: shaker
    items:
      - ref: knobs
reassignments:
  - {rule: r1, item: knobs, to: pulls, attribute_group: 40}
`

func writeImportYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestImportCatalog_FullStructure(t *testing.T) {
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	svc := NewImportService(uow)
	ctx := context.Background()

	res, err := svc.ImportCatalog(ctx, writeImportYAML(t, kitchenYAML))
	require.NoError(t, err)
	assert.Equal(t, "Kitchen 2027", res.Version.Name)
	assert.Equal(t, 8, res.ItemCount)
	assert.Equal(t, 1, res.RuleCount)
	assert.Equal(t, 1, res.ReassignmentCount)

	ws, err := NewTreeService(uow, NewSQLPersistence(uow)).Load(ctx, res.Version.ID)
	require.NoError(t, err)
	require.Len(t, ws.Tree.Roots(), 1)

	rules := ws.Rules.All()
	require.Len(t, rules, 1)
	assert.Equal(t, "Shaker", ws.Tree.Label(rules[0].ParentID))
	assert.Equal(t, "Knobs", rules[0].Items[0].Label)
	assert.Equal(t, "Hardware", ws.Tree.Label(rules[0].Items[0].PointID))
	assert.True(t, ws.Tree.HasRules(rules[0].ParentID))

	ledger, err := NewTreeService(uow, NewSQLPersistence(uow)).Reassignments(ctx, res.Version.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, rules[0].Items[0].ID, ledger[0].RuleAssociationID)
	assert.Equal(t, "Pulls", ws.Tree.Label(ledger[0].ToChoiceID))
}

func TestImportCatalog_ValidationFailsBeforeWriting(t *testing.T) {
	database := testutil.NewTestDB(t)
	svc := NewImportService(testutil.NewTestUoW(database))

	schema := &importer.CatalogSchema{Version: importer.VersionImport{Name: "Empty"}}
	_, err := svc.ImportCatalogSchema(context.Background(), schema)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, testutil.CountRows(t, database, "tree_versions"))
}

func TestImportCatalog_RollbackOnRuleFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	// 1 version + 7 items + the rule row = 9 writes; the rule item insert fails.
	failUoW := &testutil.FailOnNthExecUoW{DB: database, FailOn: 10}
	svc := NewImportService(failUoW)

	_, err := svc.ImportCatalog(context.Background(), writeImportYAML(t, kitchenYAML))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	for _, table := range []string{"tree_versions", "tree_items", "rules", "rule_items", "attribute_reassignments"} {
		assert.Zero(t, testutil.CountRows(t, database, table), table)
	}
}

func TestImportCatalog_MissingFile(t *testing.T) {
	svc := NewImportService(testutil.NewTestUoW(testutil.NewTestDB(t)))
	_, err := svc.ImportCatalog(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "loading import file")
}
