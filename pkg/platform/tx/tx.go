// Package tx carries an open *sql.Tx through context so every store touched
// inside one transactional boundary writes through the same transaction.
// Services stay ignorant of database/sql; they see only StoreTx.RunInTx.
package tx

import (
	"context"
	"database/sql"
)

type contextKey struct{}

// WithTx binds an open transaction to the context.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, contextKey{}, tx)
}

// From retrieves the transaction bound to the context, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(contextKey{}).(*sql.Tx)
	return tx, ok
}
