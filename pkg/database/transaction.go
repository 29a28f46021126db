package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txContextKey struct{}

// WriteTxOptions is used for document writes. Conditional updates rely on
// READ COMMITTED re-checking the WHERE clause after a concurrent commit.
var WriteTxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Transaction wraps sqlx.Tx. A transaction found on the context is handed
// out as a non-owning view: Commit and Rollback on it are no-ops so the
// caller that opened it decides the outcome.
type Transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
	owner  bool
	done   bool
}

func NewTx(tx *sqlx.Tx, logger ectologger.Logger) *Transaction {
	return &Transaction{
		Tx:     tx,
		logger: logger,
		owner:  true,
	}
}

// InTx reports whether ctx already carries an open transaction.
func InTx(ctx context.Context) bool {
	tx, ok := ctx.Value(txContextKey{}).(*Transaction)
	return ok && tx != nil && tx.IsOpen()
}

// GetTx joins the transaction on ctx or begins a new one and stores it on
// the returned context.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if outer, ok := ctx.Value(txContextKey{}).(*Transaction); ok && outer != nil && outer.IsOpen() {
		return ctx, &Transaction{Tx: outer.Tx, logger: logger}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return ctx, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	owned := NewTx(tx, logger)
	return context.WithValue(ctx, txContextKey{}, owned), owned, nil
}

func (t *Transaction) IsOpen() bool {
	return !t.done
}

// Rollback is safe to defer after Commit.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.done || !t.owner {
		return nil
	}

	t.done = true
	if err := t.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to roll back transaction")
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.done || !t.owner {
		return nil
	}

	t.done = true
	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
