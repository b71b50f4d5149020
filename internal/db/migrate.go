package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillSortOrder(db); err != nil {
		return fmt.Errorf("backfilling sort_order values: %w", err)
	}
	return nil
}

type siblingSet struct {
	versionID string
	parentID  int64
}

// migrateBackfillSortOrder renumbers sibling lists whose sort_order values
// are not a 1-based sequence (rows written before ordering was enforced, or
// imported with zero orders). Existing relative order is kept, ties broken
// by id.
func migrateBackfillSortOrder(db *sql.DB) error {
	ctx := context.Background()
	rows, err := db.QueryContext(ctx, `
		SELECT tree_version_id, COALESCE(parent_id, 0)
		FROM tree_items
		GROUP BY tree_version_id, COALESCE(parent_id, 0)
		HAVING MIN(sort_order) != 1
		    OR MAX(sort_order) != COUNT(*)
		    OR COUNT(DISTINCT sort_order) != COUNT(*)`)
	if err != nil {
		return fmt.Errorf("finding unordered sibling lists: %w", err)
	}
	var sets []siblingSet
	for rows.Next() {
		var s siblingSet
		if err := rows.Scan(&s.versionID, &s.parentID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning sibling list: %w", err)
		}
		sets = append(sets, s)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, s := range sets {
		if err := renumberSiblings(ctx, db, s); err != nil {
			return fmt.Errorf("renumbering children of %d in %s: %w", s.parentID, s.versionID, err)
		}
	}
	return nil
}

func renumberSiblings(ctx context.Context, db *sql.DB, s siblingSet) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting backfill transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM tree_items
		WHERE tree_version_id = ? AND COALESCE(parent_id, 0) = ?
		ORDER BY sort_order, id`, s.versionID, s.parentID)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE tree_items SET sort_order = ? WHERE id = ?`, i+1, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tree_versions (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tree_items (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		tree_version_id TEXT NOT NULL REFERENCES tree_versions(id) ON DELETE CASCADE,
		kind            TEXT NOT NULL
		                CHECK(kind IN ('group','subgroup','point','choice')),
		parent_id       INTEGER REFERENCES tree_items(id) ON DELETE CASCADE,
		label           TEXT NOT NULL,
		sort_order      INTEGER NOT NULL DEFAULT 0,
		is_active       INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tree_items_version ON tree_items(tree_version_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tree_items_parent ON tree_items(parent_id)`,

	`CREATE TABLE IF NOT EXISTS rules (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		tree_version_id TEXT NOT NULL REFERENCES tree_versions(id) ON DELETE CASCADE,
		family          TEXT NOT NULL
		                CHECK(family IN ('choice_to_choice','point_to_point','point_to_choice','option_to_choice')),
		parent_id       INTEGER REFERENCES tree_items(id) ON DELETE CASCADE,
		integration_key TEXT NOT NULL DEFAULT '',
		type_id         INTEGER NOT NULL CHECK(type_id IN (1,2))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_version ON rules(tree_version_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_parent ON rules(parent_id)`,

	// id is the rule association id that reassignments are keyed on.
	`CREATE TABLE IF NOT EXISTS rule_items (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		rule_id       INTEGER NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
		item_id       INTEGER NOT NULL REFERENCES tree_items(id) ON DELETE CASCADE,
		point_id      INTEGER NOT NULL DEFAULT 0,
		mapping_index INTEGER NOT NULL DEFAULT 0,
		type_id       INTEGER NOT NULL CHECK(type_id IN (1,2))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rule_items_rule ON rule_items(rule_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rule_items_item ON rule_items(item_id)`,

	// rule_association_id deliberately has no foreign key: removing an
	// association never silently drops reassignments.
	`CREATE TABLE IF NOT EXISTS attribute_reassignments (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		tree_version_id     TEXT NOT NULL REFERENCES tree_versions(id) ON DELETE CASCADE,
		to_choice_id        INTEGER NOT NULL REFERENCES tree_items(id) ON DELETE CASCADE,
		rule_association_id INTEGER NOT NULL,
		attribute_group_id  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reassignments_assoc ON attribute_reassignments(rule_association_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reassignments_to_choice ON attribute_reassignments(to_choice_id)`,

	// Optimistic concurrency on rule saves.
	`ALTER TABLE rules ADD COLUMN revision INTEGER NOT NULL DEFAULT 0`,

	// Plan option keys carried by tree items.
	`ALTER TABLE tree_items ADD COLUMN integration_key TEXT NOT NULL DEFAULT ''`,
}
