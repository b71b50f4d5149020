package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/alexanderramin/choicetree/internal/db"
	"github.com/alexanderramin/choicetree/internal/domain"
)

// FailOnNthExecUoW is a test UoW that injects an error on the Nth ExecContext
// call within a transaction. Rule saves, reassignment cascades and sort
// batches are multi-write operations; this lets tests break them at a
// precise write and assert that nothing was committed.
//
// ExecContext calls are counted starting at 1 and across transactions.
// QueryContext and QueryRowContext are not counted (reads pass through
// normally). A nil Err injects a persistence error.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error

	execs     atomic.Int32
	commits   atomic.Int32
	rollbacks atomic.Int32
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failOnNthExec{DBTX: tx, uow: u}
	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		u.rollbacks.Add(1)
		return fnErr
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	u.commits.Add(1)
	return nil
}

// Execs returns the number of ExecContext calls seen so far.
func (u *FailOnNthExecUoW) Execs() int { return int(u.execs.Load()) }

// Commits returns the number of committed transactions.
func (u *FailOnNthExecUoW) Commits() int { return int(u.commits.Load()) }

// Rollbacks returns the number of rolled back transactions.
func (u *FailOnNthExecUoW) Rollbacks() int { return int(u.rollbacks.Load()) }

type failOnNthExec struct {
	db.DBTX
	uow *FailOnNthExecUoW
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	n := f.uow.execs.Add(1)
	if n == f.uow.FailOn {
		if f.uow.Err != nil {
			return nil, f.uow.Err
		}
		return nil, fmt.Errorf("injected failure on exec %d: %w", n, domain.ErrPersistence)
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
