// Package tx provides an abstraction for transaction management in the run
// engine, enabling unified transaction control across different database
// backends. The execution journal uses it to keep run and chunk records
// consistent with each other.
package tx

import (
	"context"
	"database/sql"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
)

// TxExecutor defines the data operations that run the same way whether or not
// a transaction is active. It is satisfied by both DBConnection and Tx, so a
// repository can target whichever the context carries.
type TxExecutor interface {
	database.DBExecutor
}

// Tx represents an ongoing database transaction. All operations performed
// through it are atomic: either Commit persists them together or Rollback
// discards them together.
type Tx interface {
	TxExecutor

	// Commit persists all changes made within the transaction.
	Commit() error
	// Rollback discards all changes made within the transaction.
	Rollback() error
}

// TransactionManager starts database transactions. Commit and rollback are
// driven through the returned Tx.
type TransactionManager interface {
	// Begin starts a new database transaction.
	//
	// ctx: The context for the transaction.
	// opts: Optional transaction options (e.g., isolation level, read-only flag).
	//
	// Returns: The started Tx and an error if the transaction cannot begin.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
}

// TransactionManagerFactory creates TransactionManager instances from a
// DBConnection, independent of the specific database type.
type TransactionManagerFactory interface {
	// NewTransactionManager creates a new TransactionManager based on the specified database connection.
	NewTransactionManager(conn database.DBConnection) TransactionManager
}

// contextKey is the private key type for transactions stored in a context.
type contextKey struct{}

// WithContext returns a context carrying the given transaction. Repository
// operations performed with the returned context join the transaction.
func WithContext(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext extracts the transaction from the context, if one is present.
func FromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(contextKey{}).(Tx)
	return t, ok
}
