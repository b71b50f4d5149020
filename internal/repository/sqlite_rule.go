package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/domain"
)

// ruleColumns is the canonical SELECT column list for rules.
const ruleColumns = `r.id, r.tree_version_id, r.family, r.parent_id, r.integration_key, r.type_id, r.revision`

// SQLiteRuleRepo implements RuleRepo using a SQLite database.
type SQLiteRuleRepo struct {
	db db.DBTX
}

// NewSQLiteRuleRepo creates a new SQLiteRuleRepo.
func NewSQLiteRuleRepo(db db.DBTX) *SQLiteRuleRepo {
	return &SQLiteRuleRepo{db: db}
}

func (r *SQLiteRuleRepo) GetByID(ctx context.Context, id int64) (*domain.Rule, error) {
	rules, err := r.load(ctx, `r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	return &rules[0], nil
}

func (r *SQLiteRuleRepo) ListByVersion(ctx context.Context, versionID string) ([]domain.Rule, error) {
	return r.load(ctx, `r.tree_version_id = ?`, versionID)
}

func (r *SQLiteRuleRepo) ListByItem(ctx context.Context, itemID int64) ([]domain.Rule, error) {
	return r.load(ctx, `r.parent_id = ? OR r.id IN (SELECT rule_id FROM rule_items WHERE item_id = ?)`, itemID, itemID)
}

// ListTouchingItems returns rules parented by one of itemIDs or whose items
// reference one of them.
func (r *SQLiteRuleRepo) ListTouchingItems(ctx context.Context, itemIDs []int64) ([]domain.Rule, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(itemIDs)
	where := `r.parent_id IN (` + in + `) OR r.id IN (SELECT rule_id FROM rule_items WHERE item_id IN (` + in + `))`
	return r.load(ctx, where, append(args, args...)...)
}

// Save inserts a rule with id 0 at revision 1. Existing rules are updated
// only when rule.Revision matches the stored revision; a stale revision is a
// conflict and a vanished rule is not found.
func (r *SQLiteRuleRepo) Save(ctx context.Context, rule *domain.Rule) error {
	if rule.ID == 0 {
		query := `INSERT INTO rules (tree_version_id, family, parent_id, integration_key, type_id, revision)
			VALUES (?, ?, ?, ?, ?, 1)`
		res, err := r.db.ExecContext(ctx, query,
			rule.TreeVersionID, string(rule.Family), nullableID(rule.ParentID), rule.IntegrationKey, int(rule.TypeID))
		if err != nil {
			return storageErr("inserting rule", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return storageErr("reading rule id", err)
		}
		rule.ID = id
		rule.Revision = 1
	} else {
		query := `UPDATE rules SET family = ?, parent_id = ?, integration_key = ?, type_id = ?,
			revision = revision + 1
			WHERE id = ? AND revision = ?`
		res, err := r.db.ExecContext(ctx, query,
			string(rule.Family), nullableID(rule.ParentID), rule.IntegrationKey, int(rule.TypeID),
			rule.ID, rule.Revision)
		if err != nil {
			return storageErr("updating rule", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("reading rows affected", err)
		}
		if n == 0 {
			return r.missingOrStale(ctx, rule.ID)
		}
		rule.Revision++
	}
	return r.saveItems(ctx, rule)
}

func (r *SQLiteRuleRepo) missingOrStale(ctx context.Context, id int64) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules WHERE id = ?`, id).Scan(&count); err != nil {
		return storageErr("checking rule existence", err)
	}
	if count == 0 {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("rule %d: %w", id, domain.ErrConflict)
}

func (r *SQLiteRuleRepo) saveItems(ctx context.Context, rule *domain.Rule) error {
	existing, err := r.itemIDs(ctx, rule.ID)
	if err != nil {
		return err
	}
	keep := make(map[int64]bool, len(rule.Items))
	for _, it := range rule.Items {
		if it.ID != 0 {
			if !existing[it.ID] {
				return domain.Invalid("items", "association %d does not belong to rule %d", it.ID, rule.ID)
			}
			keep[it.ID] = true
		}
	}
	for id := range existing {
		if keep[id] {
			continue
		}
		if _, err := r.db.ExecContext(ctx, `DELETE FROM rule_items WHERE id = ?`, id); err != nil {
			return storageErr("deleting rule item", err)
		}
	}

	for i := range rule.Items {
		it := &rule.Items[i]
		it.RuleID = rule.ID
		if it.ID != 0 {
			query := `UPDATE rule_items SET item_id = ?, point_id = ?, mapping_index = ?, type_id = ? WHERE id = ?`
			if _, err := r.db.ExecContext(ctx, query, it.ItemID, it.PointID, it.MappingIndex, int(it.TypeID), it.ID); err != nil {
				return storageErr("updating rule item", err)
			}
			continue
		}
		query := `INSERT INTO rule_items (rule_id, item_id, point_id, mapping_index, type_id) VALUES (?, ?, ?, ?, ?)`
		res, err := r.db.ExecContext(ctx, query, rule.ID, it.ItemID, it.PointID, it.MappingIndex, int(it.TypeID))
		if err != nil {
			return storageErr("inserting rule item", err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return storageErr("reading rule item id", err)
		}
	}
	return nil
}

func (r *SQLiteRuleRepo) itemIDs(ctx context.Context, ruleID int64) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM rule_items WHERE rule_id = ?`, ruleID)
	if err != nil {
		return nil, storageErr("listing rule item ids", err)
	}
	defer rows.Close()
	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scanning rule item id", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating rule item ids", err)
	}
	return ids, nil
}

func (r *SQLiteRuleRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("deleting rule", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("reading rows affected", err)
	}
	return n > 0, nil
}

// DeleteEmpty removes rules of a version left without items, which happens
// when tree deletes cascade away their last rule item.
func (r *SQLiteRuleRepo) DeleteEmpty(ctx context.Context, versionID string) (int64, error) {
	query := `DELETE FROM rules WHERE tree_version_id = ?
		AND NOT EXISTS (SELECT 1 FROM rule_items ri WHERE ri.rule_id = rules.id)`
	res, err := r.db.ExecContext(ctx, query, versionID)
	if err != nil {
		return 0, storageErr("deleting empty rules", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("reading rows affected", err)
	}
	return n, nil
}

// load reads rules matching where, then their items in one query.
func (r *SQLiteRuleRepo) load(ctx context.Context, where string, args ...any) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules r WHERE ` + where + ` ORDER BY r.id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("listing rules", err)
	}
	rules, err := scanRules(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	pos := make(map[int64]int, len(rules))
	ids := make([]int64, len(rules))
	for i, rule := range rules {
		pos[rule.ID] = i
		ids[i] = rule.ID
	}
	in, inArgs := inClause(ids)
	itemQuery := `SELECT ri.id, ri.rule_id, ri.item_id, ri.point_id, ri.mapping_index, ri.type_id, t.label
		FROM rule_items ri JOIN tree_items t ON t.id = ri.item_id
		WHERE ri.rule_id IN (` + in + `)
		ORDER BY ri.rule_id, ri.mapping_index, ri.id`
	itemRows, err := r.db.QueryContext(ctx, itemQuery, inArgs...)
	if err != nil {
		return nil, storageErr("listing rule items", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it domain.RuleItem
		var typeID int
		if err := itemRows.Scan(&it.ID, &it.RuleID, &it.ItemID, &it.PointID, &it.MappingIndex, &typeID, &it.Label); err != nil {
			return nil, storageErr("scanning rule item", err)
		}
		it.TypeID = domain.RuleType(typeID)
		i := pos[it.RuleID]
		rules[i].Items = append(rules[i].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, storageErr("iterating rule items", err)
	}
	return rules, nil
}

func scanRules(rows *sql.Rows) ([]domain.Rule, error) {
	var rules []domain.Rule
	for rows.Next() {
		var rule domain.Rule
		var family string
		var parentID sql.NullInt64
		var typeID int
		if err := rows.Scan(&rule.ID, &rule.TreeVersionID, &family, &parentID,
			&rule.IntegrationKey, &typeID, &rule.Revision); err != nil {
			return nil, storageErr("scanning rule row", err)
		}
		rule.Family = domain.RuleFamily(family)
		rule.ParentID = idFromNull(parentID)
		rule.TypeID = domain.RuleType(typeID)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating rules", err)
	}
	return rules, nil
}
