package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	// DBConnKey carries a request-scoped acquired connection.
	DBConnKey contextKey = "db_conn"
	// DBTxKey carries an open transaction so repositories join it instead of
	// using the pool directly.
	DBTxKey contextKey = "db_tx"
)

// ConnFromContext retrieves a request-scoped database connection, if any.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TxFromContext retrieves an open transaction from the context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx begins a transaction on the pool and returns a derived context that
// carries it. Repositories built on conn(ctx) will execute inside the
// transaction until it is committed or rolled back by the caller.
func WithTx(ctx context.Context, pool *pgxpool.Pool) (context.Context, pgx.Tx, error) {
	if pool == nil {
		return ctx, nil, fmt.Errorf("begin transaction: nil pool")
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// RunInTx executes fn inside a transaction, committing on success and rolling
// back on error or panic.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	txCtx, tx, err := WithTx(ctx, pool)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
