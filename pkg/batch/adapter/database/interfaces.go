// Package database defines the database-specific connection abstractions,
// built on top of the generic resource interfaces in core/adapter.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/setwave/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
)

// DBExecutor is an interface that defines common write and read operations for a database.
// It is intended to be embedded in both DBConnection and Tx (transaction), so data
// operations run the same way whether or not a transaction is active.
type DBExecutor interface {
	// ExecuteUpdate performs write operations (INSERT, UPDATE, DELETE).
	// model: The target entity struct or slice.
	// operation: The type of operation to execute ("CREATE", "UPDATE", "DELETE").
	// tableName: The name of the table to operate on.
	// query: Query conditions (for UPDATE/DELETE, a map of key-value pairs, combined with AND).
	// Returns: The number of affected rows and an error.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteQueryAdvanced executes a read operation (SELECT) with optional sorting and limiting.
	// target: A pointer to the struct or slice to store the results.
	// query: A key-value map defining the WHERE clause conditions, combined with AND.
	// orderBy: A sort order string (e.g., "create_time desc"), empty for none.
	// limit: The maximum number of records to retrieve; 0 retrieves all.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error

	// Count counts the number of records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)

	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
}

// DBConnection represents an abstraction of a database connection.
// It embeds coreAdapter.ResourceConnection for generic connection management
// and DBExecutor for database-specific operations.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()
	DBExecutor                     // Embeds ExecuteUpdate, ExecuteQueryAdvanced, Count

	// RefreshConnection forces the re-establishment of the database connection.
	// This is used, for example, when reflecting schema changes after migration.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	// This exposes low-level dependencies but is necessary for migration tools and raw SQL access.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver is an interface that resolves the required database connection
// instance based on the execution context.
// It embeds coreAdapter.ResourceConnectionResolver for generic resolution.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver // Embeds ResolveConnection, ResolveConnectionName

	// ResolveDBConnection resolves a database connection instance by name.
	// This method is responsible for ensuring that the returned connection is valid and re-established if necessary.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider is an interface responsible for providing database connections based on configuration.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect forces the closure and re-establishment of an existing connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the type of database handled by this provider (e.g., "postgres", "mysql").
	Type() string
}

// DBProviderGroup is an Fx tag used to group all DBProvider implementations.
const DBProviderGroup = `group:"db_providers"`
