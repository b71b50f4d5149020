package repository

import (
	"context"
	"database/sql"

	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/domain"
)

const reassignmentColumns = `a.id, a.tree_version_id, a.to_choice_id, a.rule_association_id, a.attribute_group_id`

// SQLiteReassignmentRepo implements ReassignmentRepo using a SQLite database.
type SQLiteReassignmentRepo struct {
	db db.DBTX
}

// NewSQLiteReassignmentRepo creates a new SQLiteReassignmentRepo.
func NewSQLiteReassignmentRepo(db db.DBTX) *SQLiteReassignmentRepo {
	return &SQLiteReassignmentRepo{db: db}
}

func (r *SQLiteReassignmentRepo) Create(ctx context.Context, a *domain.AttributeReassignment) error {
	query := `INSERT INTO attribute_reassignments (tree_version_id, to_choice_id, rule_association_id, attribute_group_id)
		VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, a.TreeVersionID, a.ToChoiceID, a.RuleAssociationID, a.AttributeGroupID)
	if err != nil {
		return storageErr("inserting reassignment", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return storageErr("reading reassignment id", err)
	}
	return nil
}

func (r *SQLiteReassignmentRepo) ListByVersion(ctx context.Context, versionID string) ([]domain.AttributeReassignment, error) {
	query := `SELECT ` + reassignmentColumns + ` FROM attribute_reassignments a WHERE a.tree_version_id = ? ORDER BY a.id`
	return r.query(ctx, query, versionID)
}

func (r *SQLiteReassignmentRepo) ListByAssociations(ctx context.Context, associationIDs []int64) ([]domain.AttributeReassignment, error) {
	if len(associationIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(associationIDs)
	query := `SELECT ` + reassignmentColumns + ` FROM attribute_reassignments a
		WHERE a.rule_association_id IN (` + in + `) ORDER BY a.id`
	return r.query(ctx, query, args...)
}

func (r *SQLiteReassignmentRepo) ListReferencingItems(ctx context.Context, itemIDs []int64) ([]domain.AttributeReassignment, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(itemIDs)
	query := `SELECT ` + reassignmentColumns + ` FROM attribute_reassignments a
		WHERE a.to_choice_id IN (` + in + `)
		   OR a.rule_association_id IN (SELECT id FROM rule_items WHERE item_id IN (` + in + `))
		ORDER BY a.id`
	return r.query(ctx, query, append(args, args...)...)
}

func (r *SQLiteReassignmentRepo) ChoicesWithReassignments(ctx context.Context, itemIDs []int64) ([]int64, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(itemIDs)
	query := `SELECT to_choice_id FROM attribute_reassignments WHERE to_choice_id IN (` + in + `)
		UNION
		SELECT ri.item_id FROM rule_items ri
		JOIN attribute_reassignments a ON a.rule_association_id = ri.id
		WHERE ri.item_id IN (` + in + `)
		ORDER BY 1`
	rows, err := r.db.QueryContext(ctx, query, append(args, args...)...)
	if err != nil {
		return nil, storageErr("listing choices with reassignments", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scanning choice id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating choice ids", err)
	}
	return ids, nil
}

func (r *SQLiteReassignmentRepo) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := r.db.ExecContext(ctx, `DELETE FROM attribute_reassignments WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return 0, storageErr("deleting reassignments", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("reading rows affected", err)
	}
	return n, nil
}

func (r *SQLiteReassignmentRepo) query(ctx context.Context, query string, args ...any) ([]domain.AttributeReassignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("listing reassignments", err)
	}
	defer rows.Close()
	return scanReassignments(rows)
}

func scanReassignments(rows *sql.Rows) ([]domain.AttributeReassignment, error) {
	var out []domain.AttributeReassignment
	for rows.Next() {
		var a domain.AttributeReassignment
		if err := rows.Scan(&a.ID, &a.TreeVersionID, &a.ToChoiceID, &a.RuleAssociationID, &a.AttributeGroupID); err != nil {
			return nil, storageErr("scanning reassignment row", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating reassignments", err)
	}
	return out, nil
}
