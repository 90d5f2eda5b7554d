package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	tx "github.com/tigerroll/setwave/pkg/batch/core/tx"
)

// GormTxAdapter implements tx.Tx and is used by GormTransactionManager.
type GormTxAdapter struct {
	db *gorm.DB
}

// ExecuteUpdate implements tx.TxExecutor.
// This logic mirrors GormDBAdapter.ExecuteUpdate but operates on the transaction's *gorm.DB.
func (t *GormTxAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error) {
	db := t.db.WithContext(ctx)

	// SkipDefaultTransaction is not needed as the DB within the transaction is used.

	var result *gorm.DB

	// Apply table name if specified.
	if tableName != "" {
		db = db.Table(tableName)
	}

	switch operation {
	case "CREATE":
		// For CREATE operations, 'model' must be a pointer to an entity or a slice of entities.
		result = db.Create(model)

	case "UPDATE":
		// For UPDATE operations, 'model' must be a pointer to an entity with fields to be updated.
		// Use db.Model(model) to apply primary key and additional query conditions.
		result = db.Model(model).Where(query).Updates(model)

	case "DELETE":
		// For DELETE operations, 'model' must be a pointer to the entity to be deleted.
		if query != nil {
			db = db.Where(query)
		}

		result = db.Delete(model)

	default:
		return 0, fmt.Errorf("unsupported update operation: %s", operation)
	}

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExecuteQueryAdvanced implements tx.TxExecutor.
// Reads within a transaction observe that transaction's uncommitted writes.
func (t *GormTxAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	db := t.db.WithContext(ctx)

	db = applyTableName(db, target)

	if query != nil {
		db = db.Where(query)
	}

	if orderBy != "" {
		db = db.Order(orderBy)
	}

	if limit > 0 {
		db = db.Limit(limit)
	}

	result := db.Find(target)

	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Count implements tx.TxExecutor.
func (t *GormTxAdapter) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	db := t.db.WithContext(ctx)

	db = applyTableName(db, model)

	if query != nil {
		db = db.Where(query)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// IsTableNotExistError implements tx.TxExecutor.
func (t *GormTxAdapter) IsTableNotExistError(err error) bool {
	return isTableNotExistError(err)
}

// Commit implements tx.Tx.
func (t *GormTxAdapter) Commit() error {
	return t.db.Commit().Error
}

// Rollback implements tx.Tx.
func (t *GormTxAdapter) Rollback() error {
	return t.db.Rollback().Error
}

// GormTransactionManager implements tx.TransactionManager
type GormTransactionManager struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	// 1. Retrieve the latest DBConnection using DBConnectionResolver.
	conn, err := m.dbResolver.ResolveDBConnection(ctx, m.dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB connection '%s' for transaction: %w", m.dbName, err)
	}
	// 2. Get the GORM DB from the DBConnection.
	// This depends on internal implementation but is acceptable only within the adapter layer.
	adapter, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, fmt.Errorf("internal error: DBConnection implementation is not *GormDBAdapter")
	}
	gormDB := adapter.GetGormDB().WithContext(ctx)

	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	// Start GORM transaction
	gormTx := gormDB.Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}

	return &GormTxAdapter{db: gormTx}, nil
}

// GormTransactionManagerFactory is the GORM implementation of tx.TransactionManagerFactory.
type GormTransactionManagerFactory struct {
	dbResolver database.DBConnectionResolver
}

// NewGormTransactionManagerFactory creates an instance of GormTransactionManagerFactory.
func NewGormTransactionManagerFactory(dbResolver database.DBConnectionResolver) tx.TransactionManagerFactory {
	return &GormTransactionManagerFactory{dbResolver: dbResolver}
}

// NewTransactionManager creates a GormTransactionManager bound to the given connection's name.
// The manager resolves the connection again on every Begin, so it always operates
// on the live connection even after a reconnect.
func (f *GormTransactionManagerFactory) NewTransactionManager(dbConn database.DBConnection) tx.TransactionManager {
	return &GormTransactionManager{
		dbResolver: f.dbResolver,
		dbName:     dbConn.Name(),
	}
}

var _ tx.Tx = (*GormTxAdapter)(nil)
var _ tx.TransactionManager = (*GormTransactionManager)(nil)
var _ tx.TransactionManagerFactory = (*GormTransactionManagerFactory)(nil)
