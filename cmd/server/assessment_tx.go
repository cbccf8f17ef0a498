package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "mirathi/pkg/domain-errors"
	txcontext "mirathi/pkg/platform/tx"
)

const defaultAssessmentTxTimeout = 5 * time.Second

// assessmentPostgresTx implements service.StoreTx over database/sql. Every
// mutation of one assessment runs inside a single transaction: the aggregate
// row, its risk flag rows, and the outbox entries commit or roll back as one.
type assessmentPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newAssessmentPostgresTx(db *sql.DB) *assessmentPostgresTx {
	return &assessmentPostgresTx{db: db}
}

func (t *assessmentPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Nested boundaries join the transaction already in flight.
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultAssessmentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	txCtx := txcontext.WithTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
