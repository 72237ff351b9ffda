package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/port"
)

type contextKey string

const txKey contextKey = "tx"

// txState is the transaction carried in a context plus work deferred until it commits
type txState struct {
	tx          *sql.Tx
	afterCommit []func()
}

// DB wraps sql.DB with context-carried transactions
type DB struct {
	*sql.DB
	logger *zap.Logger
}

var _ port.TransactionManager = (*DB)(nil)

// NewDB creates a new database wrapper
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     sqlDB,
		logger: logger,
	}
}

// WithTransaction executes fn within a database transaction.
// A transaction already present in ctx is reused.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if st := extractTx(ctx); st != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	st := &txState{tx: tx}
	txCtx := context.WithValue(ctx, txKey, st)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, hook := range st.afterCommit {
		hook()
	}

	return nil
}

// AfterCommit runs fn once the transaction in ctx commits, or immediately
// when ctx carries no transaction. Hooks are dropped on rollback.
func (db *DB) AfterCommit(ctx context.Context, fn func()) {
	if st := extractTx(ctx); st != nil {
		st.afterCommit = append(st.afterCommit, fn)
		return
	}
	fn()
}

func extractTx(ctx context.Context) *txState {
	if st, ok := ctx.Value(txKey).(*txState); ok {
		return st
	}
	return nil
}

// getExecutor returns the transaction in ctx, or the database
func (db *DB) getExecutor(ctx context.Context) executor {
	if st := extractTx(ctx); st != nil {
		return st.tx
	}
	return db.DB
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
