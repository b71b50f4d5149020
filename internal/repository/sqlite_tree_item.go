package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/domain"
)

// treeItemColumns is the canonical SELECT column list for tree_items.
const treeItemColumns = `id, tree_version_id, kind, parent_id, label, sort_order, is_active, integration_key`

// SQLiteTreeItemRepo implements TreeItemRepo using a SQLite database.
type SQLiteTreeItemRepo struct {
	db db.DBTX
}

// NewSQLiteTreeItemRepo creates a new SQLiteTreeItemRepo.
func NewSQLiteTreeItemRepo(db db.DBTX) *SQLiteTreeItemRepo {
	return &SQLiteTreeItemRepo{db: db}
}

// Create inserts item and assigns its id.
func (r *SQLiteTreeItemRepo) Create(ctx context.Context, item *domain.TreeItem) error {
	query := `INSERT INTO tree_items (tree_version_id, kind, parent_id, label, sort_order, is_active, integration_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		item.TreeVersionID,
		string(item.Kind),
		nullableID(item.ParentID),
		item.Label,
		item.SortOrder,
		boolToInt(item.IsActive),
		item.IntegrationKey,
	)
	if err != nil {
		return storageErr("inserting tree item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storageErr("reading tree item id", err)
	}
	item.ID = id
	return nil
}

func (r *SQLiteTreeItemRepo) GetByID(ctx context.Context, id int64) (*domain.TreeItem, error) {
	query := `SELECT ` + treeItemColumns + ` FROM tree_items WHERE id = ?`
	item, err := scanTreeItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tree item %d: %w", id, ErrNotFound)
		}
		return nil, storageErr("scanning tree item", err)
	}
	return &item, nil
}

func (r *SQLiteTreeItemRepo) ListByVersion(ctx context.Context, versionID string) ([]domain.TreeItem, error) {
	query := `SELECT ` + treeItemColumns + ` FROM tree_items WHERE tree_version_id = ?
		ORDER BY COALESCE(parent_id, 0), sort_order, id`
	rows, err := r.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, storageErr("listing tree items by version", err)
	}
	defer rows.Close()
	return scanTreeItems(rows)
}

func (r *SQLiteTreeItemRepo) ListSubtree(ctx context.Context, id int64) ([]domain.TreeItem, error) {
	query := `WITH RECURSIVE subtree(id, depth) AS (
			SELECT id, 0 FROM tree_items WHERE id = ?
			UNION ALL
			SELECT t.id, s.depth + 1 FROM tree_items t JOIN subtree s ON t.parent_id = s.id
		)
		SELECT ` + treeItemColumns + ` FROM tree_items
		JOIN subtree USING (id)
		ORDER BY subtree.depth, sort_order, id`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, storageErr("listing tree item subtree", err)
	}
	defer rows.Close()
	return scanTreeItems(rows)
}

// UpdatePlacement moves an item to parentID at sortOrder. Only placement
// columns change.
func (r *SQLiteTreeItemRepo) UpdatePlacement(ctx context.Context, id, parentID int64, sortOrder int) error {
	query := `UPDATE tree_items SET parent_id = ?, sort_order = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, nullableID(parentID), sortOrder, id)
	if err != nil {
		return storageErr("updating tree item placement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("reading rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("tree item %d: %w", id, ErrNotFound)
	}
	return nil
}

// CompactSiblings renumbers the children of parentID 1..N in their current
// order. parentID 0 addresses the version's top-level items.
func (r *SQLiteTreeItemRepo) CompactSiblings(ctx context.Context, versionID string, parentID int64) error {
	query := `UPDATE tree_items SET sort_order = (
			SELECT s.rn FROM (
				SELECT id, ROW_NUMBER() OVER (ORDER BY sort_order, id) AS rn
				FROM tree_items WHERE tree_version_id = ? AND parent_id IS ?
			) s WHERE s.id = tree_items.id)
		WHERE tree_version_id = ? AND parent_id IS ?`
	parent := nullableID(parentID)
	if _, err := r.db.ExecContext(ctx, query, versionID, parent, versionID, parent); err != nil {
		return storageErr("compacting sibling sort order", err)
	}
	return nil
}

// Delete removes the item; descendants, rule items referencing them and
// rules parented by them follow by foreign-key cascade.
func (r *SQLiteTreeItemRepo) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM tree_items WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return storageErr("deleting tree item", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTreeItem(row rowScanner) (domain.TreeItem, error) {
	var item domain.TreeItem
	var kind string
	var parentID sql.NullInt64
	var isActive int
	err := row.Scan(&item.ID, &item.TreeVersionID, &kind, &parentID, &item.Label,
		&item.SortOrder, &isActive, &item.IntegrationKey)
	if err != nil {
		return item, err
	}
	item.Kind = domain.ItemKind(kind)
	item.ParentID = idFromNull(parentID)
	item.IsActive = intToBool(isActive)
	return item, nil
}

func scanTreeItems(rows *sql.Rows) ([]domain.TreeItem, error) {
	var items []domain.TreeItem
	for rows.Next() {
		item, err := scanTreeItem(rows)
		if err != nil {
			return nil, storageErr("scanning tree item row", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating tree items", err)
	}
	return items, nil
}
