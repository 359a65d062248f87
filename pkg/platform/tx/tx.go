// Package tx carries a SQL transaction through context so stores can join
// the caller's transaction without widening their interfaces.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// Runner is the subset of *sql.DB and *sql.Tx that stores execute against.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// RunnerFor returns the context's transaction when one travels with it,
// otherwise the given fallback handle.
func RunnerFor(ctx context.Context, db *sql.DB) Runner {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}
