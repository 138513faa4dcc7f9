// Package tx provides an abstraction for transaction management in the storefront web framework.
// Repositories write through a TxExecutor that is either the active transaction
// carried by the context or a plain connection.
package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tigerroll/storefront/pkg/web/core/adapter"
)

// TxExecutor defines the write operations executable with or without a transaction.
// It is embedded in both DBConnection and Tx, so repositories write the same way either way.
type TxExecutor interface {
	// ExecuteUpdate performs a write operation on model.
	//
	// operation is one of "CREATE", "UPDATE" or "DELETE". query holds extra
	// column=value conditions for UPDATE and DELETE, combined with AND.
	// UPDATE writes every column of model, zero values included.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts model, or on a conflict over conflictColumns updates
	// updateColumns. An empty updateColumns means DO NOTHING.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// IsTableNotExistError reports whether err means the target table is missing.
	IsTableNotExistError(err error) bool
}

// Tx represents an ongoing database transaction.
type Tx interface {
	TxExecutor

	// ExecuteQuery reads rows matching query within the transaction.
	// target is a pointer to a slice of models.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// Savepoint creates a new savepoint within the current transaction.
	Savepoint(name string) error
	// RollbackToSavepoint rolls back the transaction to the named savepoint.
	RollbackToSavepoint(name string) error
}

// TransactionManager manages the lifecycle of database transactions.
type TransactionManager interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits the specified transaction.
	Commit(tx Tx) error
	// Rollback rolls back the specified transaction.
	Rollback(tx Tx) error
}

// TransactionManagerFactory creates a TransactionManager bound to one named connection.
type TransactionManagerFactory interface {
	NewTransactionManager(conn adapter.ResourceConnection) TransactionManager
}

type txContextKey struct{}

// WithTx returns a copy of ctx that carries t.
func WithTx(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, t)
}

// TxFromContext returns the transaction carried by ctx, if any.
func TxFromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(txContextKey{}).(Tx)
	return t, ok && t != nil
}

// Run executes fn inside a transaction begun on tm. The transaction is
// reachable from fn's context through TxFromContext. It is committed when fn
// returns nil and rolled back otherwise, including when fn panics.
// If ctx already carries a transaction, fn joins it and Run neither commits nor rolls back.
func Run(ctx context.Context, tm TransactionManager, fn func(ctx context.Context) error) (err error) {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	t, err := tm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tm.Rollback(t)
			panic(r)
		}
	}()

	if err = fn(WithTx(ctx, t)); err != nil {
		if rbErr := tm.Rollback(t); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}
	if err = tm.Commit(t); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
