// Package app assembles the purge example application: database connections
// and providers, the metadata transaction manager, the embedded journal
// migration filesystem, and the execution journal repository.
package app

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/setwave/pkg/batch/adapter/database/config"
	dummy "github.com/tigerroll/setwave/pkg/batch/adapter/database/dummy"
	gormadapter "github.com/tigerroll/setwave/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/setwave/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/setwave/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/setwave/pkg/batch/adapter/database/gorm/sqlite"
	storageAdapter "github.com/tigerroll/setwave/pkg/batch/adapter/storage"
	"github.com/tigerroll/setwave/pkg/batch/component/migration"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	tx "github.com/tigerroll/setwave/pkg/batch/core/tx"
	"github.com/tigerroll/setwave/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/setwave/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// DBProviderMap is used by main.go to dynamically select providers.
var DBProviderMap = map[string]func(cfg *config.Config) database.DBProvider{
	"postgres": postgres.NewProvider,
	"redshift": postgres.NewProvider, // Redshift speaks the PostgreSQL protocol.
	"mysql":    mysql.NewProvider,
	"sqlite":   sqlite.NewProvider,
}

// DBConnectionsParams defines the dependencies for NewAllDBConnections.
type DBConnectionsParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	// DBProviders is the slice of providers selected by main.go, collected by
	// Fx through the db_providers group.
	DBProviders []database.DBProvider `group:"db_providers"`
}

// NewAllDBConnections establishes a connection for every data source named in
// the configuration and returns the connections and the providers as maps.
// Connections of type "dummy" get the DB-less stand-in instead of a provider.
//
// Returns:
//   - A map of database connections, keyed by their configuration name.
//   - A map of database providers, keyed by their database type.
//   - An error if connection establishment or configuration decoding fails.
func NewAllDBConnections(p DBConnectionsParams) (
	map[string]database.DBConnection,
	map[string]database.DBProvider,
	error,
) {
	allConnections := make(map[string]database.DBConnection)
	allProviders := make(map[string]database.DBProvider)

	providerMap := make(map[string]database.DBProvider)
	for _, provider := range p.DBProviders {
		providerMap[provider.Type()] = provider
		allProviders[provider.Type()] = provider
	}

	for name := range p.Cfg.Setwave.AdapterConfigs {
		var dbCfg dbconfig.DatabaseConfig
		if err := configbinder.BindSection(p.Cfg.Setwave.AdapterConfigs, name, &dbCfg); err != nil {
			return nil, nil, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
		}

		var conn database.DBConnection
		if dbCfg.Type == "dummy" {
			logger.Infof("DB connection '%s' is configured as 'dummy'. Providing the DB-less stand-in.", name)
			conn = dummy.NewDummyDBConnection()
		} else {
			provider, ok := providerMap[dbCfg.Type]
			if !ok {
				if dbCfg.Type == "redshift" {
					provider, ok = providerMap["postgres"]
				}
				if !ok {
					logger.Warnf("No DBProvider found for database type '%s' (datasource: %s). Skipping connection.", dbCfg.Type, name)
					continue
				}
			}

			var err error
			conn, err = provider.GetConnection(name)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to get connection for '%s' using provider '%s': %w", name, provider.Type(), err)
			}
		}

		allConnections[name] = conn
		logger.Debugf("Initialized DB connection for: %s (%s)", name, dbCfg.Type)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Infof("Closing all database connections...")
			var wg sync.WaitGroup
			var lastErr error

			for _, provider := range p.DBProviders {
				wg.Add(1)
				go func(prov database.DBProvider) {
					defer wg.Done()
					if err := prov.CloseAll(); err != nil {
						logger.Errorf("Failed to close connections for provider %s: %v", prov.Type(), err)
						lastErr = err
					}
				}(provider)
			}
			wg.Wait()
			return lastErr
		},
	})

	return allConnections, allProviders, nil
}

// MetadataTxManagerParams defines the dependencies for NewMetadataTxManager.
type MetadataTxManagerParams struct {
	fx.In
	Cfg              *config.Config
	AllDBConnections map[string]database.DBConnection
	TxFactory        tx.TransactionManagerFactory
}

// NewMetadataTxManager builds the TransactionManager for the execution journal
// connection. The connection is named by Infrastructure.RunRepositoryDBRef and
// defaults to "metadata".
func NewMetadataTxManager(p MetadataTxManagerParams) (tx.TransactionManager, error) {
	name := p.Cfg.Setwave.Infrastructure.RunRepositoryDBRef
	if name == "" {
		name = "metadata"
	}
	conn, ok := p.AllDBConnections[name]
	if !ok {
		return nil, fmt.Errorf("DBConnection '%s' for the execution journal was not initialized", name)
	}
	return p.TxFactory.NewTransactionManager(conn), nil
}

// MigrationFSMapParams defines the dependencies for NewMigrationFSMap.
type MigrationFSMapParams struct {
	fx.In
	// RawFS is the raw embedded migration filesystem injected from main.go.
	RawFS embed.FS `name:"rawJournalMigrationsFS"`
}

// NewMigrationFSMap registers the embedded journal schema under the name the
// migration runner looks up. The embed prefix is stripped so the runner can
// address the per-database directories directly (e.g. "sqlite").
func NewMigrationFSMap(p MigrationFSMapParams) (map[string]fs.FS, error) {
	subFS, err := fs.Sub(p.RawFS, "resources/migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to scope the embedded migration filesystem: %w", err)
	}
	return map[string]fs.FS{migration.JournalMigrationsFSName: subFS}, nil
}

// StorageShutdownParams collects every storage provider for shutdown.
type StorageShutdownParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Providers []storageAdapter.StorageProvider `group:"storage_providers"`
}

// RegisterStorageShutdown closes every storage backend when the application stops.
func RegisterStorageShutdown(p StorageShutdownParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			var lastErr error
			for _, provider := range p.Providers {
				if err := provider.CloseAll(); err != nil {
					logger.Errorf("Failed to close storage connections for provider %s: %v", provider.Type(), err)
					lastErr = err
				}
			}
			return lastErr
		},
	})
}

// Module defines the application's Fx module.
var Module = fx.Options(
	// gormadapter.Module provides the TransactionManagerFactory and the
	// connection resolver shared by the journal repository and sqlSource.
	gormadapter.Module,

	fx.Provide(NewAllDBConnections),

	// The journal TxManager, tagged for injection into the repository and the launcher.
	fx.Provide(fx.Annotate(
		NewMetadataTxManager,
		fx.ResultTags(`name:"metadata"`),
	)),

	// Execution journal repository against the metadata connection.
	fx.Provide(sql.NewExecutionRepository),

	// Embedded journal migrations, aggregated under the well-known FS name.
	fx.Provide(fx.Annotate(
		NewMigrationFSMap,
		fx.ResultTags(`name:"allMigrationFS"`),
	)),

	fx.Invoke(RegisterStorageShutdown),
)
