package migration

import (
	"context"
	"io/fs"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/setwave/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	"github.com/tigerroll/setwave/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

const moduleName = "migration"

// JournalMigrationsFSName is the registry key of the migration filesystem
// holding the execution journal schema. Applications register it under this
// name in the "allMigrationFS" map.
const JournalMigrationsFSName = "journalMigrationsFS"

// Runner applies pending schema migrations before a run starts. It resolves
// the configured database connection, runs all pending migrations against it,
// and re-establishes the connection afterwards so the schema changes are
// visible to the journal repository.
type Runner struct {
	cfg              *config.Config
	allDBProviders   map[string]database.DBProvider
	allMigrationFS   map[string]fs.FS
	migratorProvider MigratorProvider
}

// RunnerParams defines the dependencies for NewRunner.
type RunnerParams struct {
	fx.In
	Cfg              *config.Config
	AllDBProviders   map[string]database.DBProvider `optional:"true"`
	AllMigrationFS   map[string]fs.FS               `name:"allMigrationFS" optional:"true"`
	MigratorProvider MigratorProvider
}

// NewRunner creates a new migration Runner.
func NewRunner(p RunnerParams) *Runner {
	return &Runner{
		cfg:              p.Cfg,
		allDBProviders:   p.AllDBProviders,
		allMigrationFS:   p.AllMigrationFS,
		migratorProvider: p.MigratorProvider,
	}
}

// Run executes the configured migrations. It is a no-op when migrations are
// disabled or when the target connection is a dummy (DB-less mode).
func (r *Runner) Run(ctx context.Context) error {
	mc := r.cfg.Setwave.Infrastructure.Migration
	if !mc.Enabled {
		logger.Debugf("Migrations are disabled. Skipping.")
		return nil
	}

	dbName := mc.DBRef
	if dbName == "" {
		dbName = r.cfg.Setwave.Infrastructure.RunRepositoryDBRef
	}
	if dbName == "" {
		dbName = "metadata"
	}

	var dbCfg dbconfig.DatabaseConfig
	if _, ok := r.cfg.Setwave.AdapterConfigs[dbName]; !ok {
		return exception.NewBatchErrorf(moduleName, "database configuration '%s' not found in database configs", dbName)
	}
	if err := configbinder.BindSection(r.cfg.Setwave.AdapterConfigs, dbName, &dbCfg); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to decode database config for '%s': %w", dbName, err)
	}

	// DB-less mode runs without a schema, so there is nothing to migrate.
	if strings.TrimSpace(strings.ToLower(dbCfg.Type)) == "dummy" {
		logger.Infof("DB connection '%s' is configured as 'dummy'. Skipping migration.", dbName)
		return nil
	}

	provider, ok := r.allDBProviders[dbCfg.Type]
	if !ok {
		// Redshift speaks the PostgreSQL protocol.
		if dbCfg.Type == "redshift" {
			provider, ok = r.allDBProviders["postgres"]
		}
		if !ok {
			return exception.NewBatchErrorf(moduleName, "DBProvider for type '%s' not found", dbCfg.Type)
		}
	}

	// Start from a fresh connection; a previous component may have closed it.
	dbConn, err := provider.ForceReconnect(dbName)
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to force reconnect DB connection '%s' before migration: %w", dbName, err)
	}
	if dbConn.Type() == "dummy" {
		logger.Infof("Skipping migration for dummy database connection '%s'.", dbName)
		return nil
	}

	fsName := mc.FSName
	if fsName == "" {
		fsName = JournalMigrationsFSName
	}
	migrationFS, ok := r.allMigrationFS[fsName]
	if !ok {
		return exception.NewBatchErrorf(moduleName, "migration FS '%s' not found", fsName)
	}

	// The built-in journal schema and application-supplied schemas track
	// their history in separate tables.
	migrationTable := FixedAppMigrationsTable
	if fsName == JournalMigrationsFSName {
		migrationTable = FixedJournalMigrationsTable
	}

	migrationDir := mc.Dir
	if migrationDir == "" {
		migrationDir = dbConn.Type()
		logger.Debugf("Using DB type '%s' as migration directory.", migrationDir)
	}

	migrator := r.migratorProvider.NewMigrator(dbConn)
	if err := migrator.Up(ctx, migrationFS, migrationDir, migrationTable); err != nil {
		return exception.NewBatchError(moduleName, "migration 'up' failed", err, false, false)
	}

	// The migration tool may close the underlying connection, and the schema
	// has changed either way. Re-establish so later resolutions see both.
	if _, err := provider.ForceReconnect(dbName); err != nil {
		return exception.NewBatchError(moduleName, "failed to force reconnect DB connection after migration", err, false, false)
	}

	logger.Infof("Migrations for DB connection '%s' applied.", dbName)
	return nil
}
