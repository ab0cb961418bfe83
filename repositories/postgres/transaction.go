package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/patient-service/repositories"
)

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TransactionManager opens database transactions for the service layer.
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// Begin starts a transaction. The returned Transaction's Context carries it,
// so repositories called with that context join the transaction.
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Transaction{
		tx:     sqlTx,
		logger: tm.logger.With(zap.String("tx_id", uuid.NewString())),
	}
	tx.ctx = context.WithValue(ctx, txKey{}, tx)
	tx.logger.Debug("transaction started")
	return tx, nil
}

// InTransaction runs fn in a transaction, committing on success and rolling
// back on error or panic. fn's error is returned as is, joined with any
// rollback failure.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) (err error) {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx.Context(), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Transaction wraps *sql.Tx.
type Transaction struct {
	tx     *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		t.logger.Warn("transaction commit failed", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed")
	return nil
}

// Rollback is a no-op on a transaction that is already finished.
func (t *Transaction) Rollback() error {
	err := t.tx.Rollback()
	switch {
	case err == nil:
		t.logger.Debug("transaction rolled back")
		return nil
	case errors.Is(err, sql.ErrTxDone):
		return nil
	default:
		t.logger.Error("transaction rollback failed", zap.Error(err))
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
}

func (t *Transaction) Context() context.Context {
	return t.ctx
}

// TransactionFromContext returns the transaction bound to ctx by Begin.
func TransactionFromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(*Transaction)
	return tx, ok
}

// conn picks where a query runs: a transaction bound with WithTx, then one
// carried by ctx, then the pool.
func conn(ctx context.Context, db *DB, bound *Transaction) querier {
	if bound != nil {
		return bound.tx
	}
	if tx, ok := TransactionFromContext(ctx); ok {
		return tx.tx
	}
	return db.DB
}

// asTransaction unwraps a repositories.Transaction created by this package.
func asTransaction(tx repositories.Transaction) *Transaction {
	pgTx, _ := tx.(*Transaction)
	return pgTx
}
