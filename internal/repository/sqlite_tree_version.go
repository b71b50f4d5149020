package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/domain"
)

// SQLiteTreeVersionRepo implements TreeVersionRepo using a SQLite database.
type SQLiteTreeVersionRepo struct {
	db db.DBTX
}

// NewSQLiteTreeVersionRepo creates a new SQLiteTreeVersionRepo.
func NewSQLiteTreeVersionRepo(db db.DBTX) *SQLiteTreeVersionRepo {
	return &SQLiteTreeVersionRepo{db: db}
}

func (r *SQLiteTreeVersionRepo) Create(ctx context.Context, v *domain.TreeVersion) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO tree_versions (id, name, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, v.ID, v.Name, v.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return storageErr("inserting tree version", err)
	}
	return nil
}

func (r *SQLiteTreeVersionRepo) GetByID(ctx context.Context, id string) (*domain.TreeVersion, error) {
	query := `SELECT id, name, created_at FROM tree_versions WHERE id = ?`
	var v domain.TreeVersion
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Name, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tree version %s: %w", id, ErrNotFound)
		}
		return nil, storageErr("scanning tree version", err)
	}
	if v.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &v, nil
}

func (r *SQLiteTreeVersionRepo) List(ctx context.Context) ([]*domain.TreeVersion, error) {
	query := `SELECT id, name, created_at FROM tree_versions ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("listing tree versions", err)
	}
	defer rows.Close()

	var out []*domain.TreeVersion
	for rows.Next() {
		var v domain.TreeVersion
		var createdAt string
		if err := rows.Scan(&v.ID, &v.Name, &createdAt); err != nil {
			return nil, storageErr("scanning tree version row", err)
		}
		if v.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating tree versions", err)
	}
	return out, nil
}
