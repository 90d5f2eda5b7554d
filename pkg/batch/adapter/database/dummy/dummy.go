package dummy

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/setwave/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/core/tx"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// dummyDBConnection is a dummy implementation of the database.DBConnection interface.
// It performs no actual database operations, suitable for DB-less mode or testing.
type dummyDBConnection struct{}

// ExecuteUpdate is a dummy implementation of DBExecutor.ExecuteUpdate.
func (d *dummyDBConnection) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	logger.Debugf("Dummy DBConnection: ExecuteUpdate called, doing nothing. Table: %s", tableName)
	return 0, nil
}

// ExecuteQueryAdvanced is a dummy implementation of DBExecutor.ExecuteQueryAdvanced.
func (d *dummyDBConnection) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	logger.Debugf("Dummy DBConnection: ExecuteQueryAdvanced called, doing nothing. Query: %v, OrderBy: %s, Limit: %d", query, orderBy, limit)
	return nil
}

// Count is a dummy implementation of DBExecutor.Count.
func (d *dummyDBConnection) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	logger.Debugf("Dummy DBConnection: Count called, doing nothing. Query: %v", query)
	return 0, nil
}

// IsTableNotExistError checks if the given error indicates that a table does not exist (always returns false for dummy).
func (d *dummyDBConnection) IsTableNotExistError(err error) bool { return false }

// RefreshConnection is a dummy implementation of DBConnection.RefreshConnection.
func (d *dummyDBConnection) RefreshConnection(ctx context.Context) error {
	logger.Debugf("Dummy DBConnection: RefreshConnection called, doing nothing.")
	return nil
}

// Type returns the type of the dummy database connection.
func (d *dummyDBConnection) Type() string { return "dummy" }

// Name returns the name of the dummy database connection.
func (d *dummyDBConnection) Name() string { return "dummy" }

// Close closes the dummy database connection (no-op).
func (d *dummyDBConnection) Close() error { return nil }

// Config returns the dummy database configuration.
func (d *dummyDBConnection) Config() dbconfig.DatabaseConfig { return dbconfig.DatabaseConfig{} }

// GetSQLDB returns an error as a dummyDBConnection does not have an underlying *sql.DB.
func (d *dummyDBConnection) GetSQLDB() (*sql.DB, error) {
	return nil, fmt.Errorf("dummyDBConnection does not have an underlying *sql.DB")
}

// dummyDBProvider is a dummy implementation of the database.DBProvider interface.
// It always returns a dummy DBConnection instance.
type dummyDBProvider struct{}

// GetConnection returns a dummy DBConnection.
func (d *dummyDBProvider) GetConnection(name string) (database.DBConnection, error) {
	logger.Debugf("Dummy DBProvider: GetConnection called for '%s'.", name)
	return &dummyDBConnection{}, nil
}

// ForceReconnect returns a new dummy DBConnection, simulating re-establishment.
func (d *dummyDBProvider) ForceReconnect(name string) (database.DBConnection, error) {
	logger.Debugf("Dummy DBProvider: ForceReconnect called for '%s'.", name)
	return &dummyDBConnection{}, nil
}

// CloseAll performs no operation for dummy connections.
func (d *dummyDBProvider) CloseAll() error {
	logger.Debugf("Dummy DBProvider: CloseAll called.")
	return nil
}

// Type returns the type of the dummy database provider.
func (d *dummyDBProvider) Type() string { return "dummy" }

// NewDummyDBConnection returns a new dummy DBConnection instance.
func NewDummyDBConnection() database.DBConnection {
	return &dummyDBConnection{}
}

// NewDummyDBProvider returns a new dummy DBProvider instance.
func NewDummyDBProvider() database.DBProvider {
	return &dummyDBProvider{}
}

// DummyTx is a dummy implementation of the tx.Tx interface.
// It performs no actual operations.
type DummyTx struct{}

// ExecuteUpdate is a dummy implementation of TxExecutor.ExecuteUpdate.
func (d *DummyTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return 0, nil
}

// ExecuteQueryAdvanced is a dummy implementation of TxExecutor.ExecuteQueryAdvanced.
func (d *DummyTx) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	return nil
}

// Count is a dummy implementation of TxExecutor.Count.
func (d *DummyTx) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	return 0, nil
}

// IsTableNotExistError is a dummy implementation of TxExecutor.IsTableNotExistError.
func (d *DummyTx) IsTableNotExistError(err error) bool { return false }

// Commit is a dummy implementation of Tx.Commit.
func (d *DummyTx) Commit() error { return nil }

// Rollback is a dummy implementation of Tx.Rollback.
func (d *DummyTx) Rollback() error { return nil }

// dummyTxManager is a dummy implementation of the tx.TransactionManager interface.
// It performs no actual operations.
type dummyTxManager struct{}

// Begin is a dummy implementation of TransactionManager.Begin.
func (d *dummyTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	return &DummyTx{}, nil
}

// DummyTxManagerFactory is a dummy implementation of the tx.TransactionManagerFactory interface.
// It always returns a dummy TransactionManager.
type DummyTxManagerFactory struct{}

// NewTransactionManager creates a new dummy TransactionManager.
func (d *DummyTxManagerFactory) NewTransactionManager(conn database.DBConnection) tx.TransactionManager {
	return &dummyTxManager{}
}

// DefaultDBConnectionResolver is a dummy implementation of database.DBConnectionResolver.
type DefaultDBConnectionResolver struct{}

// NewDefaultDBConnectionResolver creates a new DefaultDBConnectionResolver.
func NewDefaultDBConnectionResolver() *DefaultDBConnectionResolver {
	logger.Warnf("Running in DB-less mode. Providing dummy DB connection resolver.")
	return &DefaultDBConnectionResolver{}
}

// ResolveDBConnection resolves a database connection instance by name, returning a dummy connection.
func (r *DefaultDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	logger.Warnf("Attempted to resolve DB connection '%s' in DB-less mode. Returning dummy connection.", name)
	return &dummyDBConnection{}, nil
}

// ResolveConnection resolves a resource connection instance by name, returning a dummy connection.
func (r *DefaultDBConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveDBConnection(ctx, name)
}

// ResolveConnectionName resolves the name of the resource connection, returning the default name.
func (r *DefaultDBConnectionResolver) ResolveConnectionName(ctx context.Context, run *model.Run, defaultName string) (string, error) {
	return defaultName, nil
}

// Ensure that dummy implementations satisfy their respective interfaces.
var _ database.DBConnection = (*dummyDBConnection)(nil)
var _ database.DBProvider = (*dummyDBProvider)(nil)
var _ tx.Tx = (*DummyTx)(nil)
var _ tx.TransactionManager = (*dummyTxManager)(nil)
var _ tx.TransactionManagerFactory = (*DummyTxManagerFactory)(nil)
var _ database.DBConnectionResolver = (*DefaultDBConnectionResolver)(nil)
