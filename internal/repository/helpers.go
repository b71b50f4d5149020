package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/alexanderramin/choicetree/internal/domain"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = domain.ErrNotFound

// storageErr tags a driver failure as a persistence error while keeping the
// driver error in the chain.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}

// nullableID converts a tree item id to a value suitable for SQLite storage.
// Returns nil (SQL NULL) for 0, otherwise the id.
func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

// idFromNull converts a nullable id column back to 0-for-none.
func idFromNull(v sql.NullInt64) int64 {
	if !v.Valid {
		return 0
	}
	return v.Int64
}

// inClause returns "?,?,?" for n placeholders and the ids as query args.
func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// boolToInt converts a Go bool to an integer (0 or 1) for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// intToBool converts a SQLite integer (0 or 1) to a Go bool.
func intToBool(i int) bool {
	return i != 0
}
