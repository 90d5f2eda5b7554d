package gorm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// GormDBConnectionResolver is the GORM implementation of database.DBConnectionResolver.
type GormDBConnectionResolver struct {
	dbProviders map[string]database.DBProvider // A map of DBProviders, keyed by database type (e.g., "postgres", "mysql").
	cfg         *config.Config                 // The application's global configuration.
	// exprResolver expands #{...} expressions in connection name references. It may be nil.
	exprResolver port.ExpressionResolver
}

// NewGormDBConnectionResolver creates a new GormDBConnectionResolver.
// It receives dependencies using Fx's parameter struct.
//
// Parameters:
//
//	p: An Fx parameter struct containing a slice of DBProviders, the application Config,
//	   and an optional ExpressionResolver for dynamic connection name references.
//
// Returns:
//
//	A new GormDBConnectionResolver instance.
func NewGormDBConnectionResolver(p struct {
	fx.In
	DBProviders []database.DBProvider `group:"db_providers"` // All DBProviders provided by Fx as a slice.
	Cfg         *config.Config        // The application's global configuration.
	// ExpressionResolver is used for dynamic connection name resolution.
	ExpressionResolver port.ExpressionResolver `optional:"true"`
}) *GormDBConnectionResolver {
	// Converts the received slice of DBProviders into a map for easier lookup.
	providerMap := make(map[string]database.DBProvider)
	for _, provider := range p.DBProviders {
		providerMap[provider.Type()] = provider
	}

	return &GormDBConnectionResolver{
		dbProviders:  providerMap,
		cfg:          p.Cfg,
		exprResolver: p.ExpressionResolver,
	}
}

// ResolveDBConnection resolves a database connection with the specified name.
// It attempts to reconnect if the connection is closed or invalid.
//
// Parameters:
//
//	ctx: The context for the operation.
//	name: The name of the database connection to resolve.
//
// Returns:
//
//	The resolved database.DBConnection and an error if resolution or reconnection fails.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	// 1. Get DB type from configuration.
	dbConfig, err := decodeDatabaseConfig(r.cfg, name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: %w", err)
	}

	// 2. Select the appropriate DBProvider.
	provider, ok := r.dbProviders[dbConfig.Type]
	if !ok {
		// Consider special cases like Redshift (uses PostgreSQL provider).
		if dbConfig.Type == "redshift" {
			provider, ok = r.dbProviders["postgres"]
		}
		if !ok {
			return nil, fmt.Errorf("DBConnectionResolver: DBProvider for type '%s' not found for connection '%s'", dbConfig.Type, name)
		}
	}

	// 3. Get connection from DBProvider.
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: Failed to get connection '%s': %w", name, err)
	}

	// 4. Check connection health and attempt to reconnect if necessary.
	sqlDB, getDBErr := conn.GetSQLDB()
	if getDBErr != nil {
		logger.Debugf("DBConnectionResolver: Failed to get underlying *sql.DB for connection '%s' (possibly a dummy connection): %v", name, getDBErr)
		return conn, nil // Return the connection as is if it's a dummy.
	}

	pingErr := sqlDB.PingContext(ctx)
	if pingErr != nil {
		logger.Warnf("DBConnectionResolver: Connection '%s' is invalid (%v). Attempting to reconnect.", name, pingErr)
		reconnectedConn, reconnectErr := provider.ForceReconnect(name)
		if reconnectErr != nil {
			return nil, fmt.Errorf("DBConnectionResolver: Failed to reconnect connection '%s': %w", name, reconnectErr)
		}
		logger.Infof("DBConnectionResolver: Successfully reconnected connection '%s'.", name)
		return reconnectedConn, nil
	}

	return conn, nil
}

// ResolveConnection is part of the coreAdapter.ResourceConnectionResolver interface.
// It is implemented by calling ResolveDBConnection.
func (r *GormDBConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveDBConnection(ctx, name)
}

// ResolveConnectionName is part of the coreAdapter.ResourceConnectionResolver interface.
// A connection reference may contain #{...} expressions (for example
// "#{run.name}_workload"); these are expanded against the current run before
// the name is returned. Plain references pass through unchanged.
func (r *GormDBConnectionResolver) ResolveConnectionName(ctx context.Context, run *model.Run, defaultName string) (string, error) {
	if r.exprResolver != nil && strings.Contains(defaultName, "#{") {
		resolved, err := r.exprResolver.Resolve(ctx, defaultName, run)
		if err != nil {
			return "", fmt.Errorf("DBConnectionResolver: failed to resolve connection name expression '%s': %w", defaultName, err)
		}
		if resolved != "" {
			return resolved, nil
		}
	}
	return defaultName, nil
}

// Verify that GormDBConnectionResolver satisfies the resolver interfaces.
var _ database.DBConnectionResolver = (*GormDBConnectionResolver)(nil)
var _ coreAdapter.ResourceConnectionResolver = (*GormDBConnectionResolver)(nil)
