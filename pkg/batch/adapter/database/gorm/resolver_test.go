package gorm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/setwave/pkg/batch/adapter/database/gorm"
	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	"github.com/tigerroll/setwave/pkg/batch/core/support/expression"
	"github.com/tigerroll/setwave/pkg/batch/test"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// stubProvider hands out one fixed connection for its database type.
type stubProvider struct {
	dbType  string
	conn    database.DBConnection
	reconn  database.DBConnection
	recalls int
}

func (p *stubProvider) GetConnection(name string) (database.DBConnection, error) {
	return p.conn, nil
}

func (p *stubProvider) ForceReconnect(name string) (database.DBConnection, error) {
	p.recalls++
	return p.reconn, nil
}

func (p *stubProvider) CloseAll() error { return nil }
func (p *stubProvider) Type() string    { return p.dbType }

func newResolver(t *testing.T, cfg *config.Config, exprResolver port.ExpressionResolver, providers ...database.DBProvider) *gormadapter.GormDBConnectionResolver {
	t.Helper()
	return gormadapter.NewGormDBConnectionResolver(struct {
		fx.In
		DBProviders        []database.DBProvider `group:"db_providers"`
		Cfg                *config.Config
		ExpressionResolver port.ExpressionResolver `optional:"true"`
	}{
		DBProviders:        providers,
		Cfg:                cfg,
		ExpressionResolver: exprResolver,
	})
}

func TestGormDBConnectionResolver_ResolvesByConfiguredType(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Setwave.AdapterConfigs["metadata"] = map[string]interface{}{"type": "mock_db"}

	conn := test.CreateTestDBConnection(t, nil)
	resolver := newResolver(t, cfg, nil, &stubProvider{dbType: "mock_db", conn: conn})

	// A connection without an underlying pool skips the health check.
	resolved, err := resolver.ResolveDBConnection(context.Background(), "metadata")
	assert.NoError(t, err)
	assert.Same(t, conn, resolved)
}

func TestGormDBConnectionResolver_RedshiftFallsBackToPostgres(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Setwave.AdapterConfigs["warehouse"] = map[string]interface{}{"type": "redshift"}

	conn := test.CreateTestDBConnection(t, nil)
	resolver := newResolver(t, cfg, nil, &stubProvider{dbType: "postgres", conn: conn})

	resolved, err := resolver.ResolveDBConnection(context.Background(), "warehouse")
	assert.NoError(t, err)
	assert.Same(t, conn, resolved)
}

func TestGormDBConnectionResolver_UnknownType(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Setwave.AdapterConfigs["legacy"] = map[string]interface{}{"type": "oracle"}

	resolver := newResolver(t, cfg, nil, &stubProvider{dbType: "mock_db", conn: test.CreateTestDBConnection(t, nil)})

	_, err := resolver.ResolveDBConnection(context.Background(), "legacy")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DBProvider for type 'oracle' not found")
}

func TestGormDBConnectionResolver_MissingConfiguration(t *testing.T) {
	resolver := newResolver(t, config.NewConfig(), nil, &stubProvider{dbType: "mock_db", conn: test.CreateTestDBConnection(t, nil)})

	_, err := resolver.ResolveDBConnection(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestGormDBConnectionResolver_ReconnectsDeadConnection(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	assert.NoError(t, err)
	defer func() {
		mock.ExpectClose()
		sqlDB.Close()
	}()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	assert.NoError(t, err)

	cfg := config.NewConfig()
	cfg.Setwave.AdapterConfigs["metadata"] = map[string]interface{}{"type": "mock_db"}

	stale := test.CreateTestDBConnection(t, gormDB)
	fresh := test.CreateTestDBConnection(t, nil)
	provider := &stubProvider{dbType: "mock_db", conn: stale, reconn: fresh}
	resolver := newResolver(t, cfg, nil, provider)

	// A failed ping forces the resolver back through the provider.
	mock.ExpectPing().WillReturnError(errors.New("connection is already closed"))

	resolved, err := resolver.ResolveDBConnection(context.Background(), "metadata")
	assert.NoError(t, err)
	assert.Same(t, fresh, resolved)
	assert.Equal(t, 1, provider.recalls)
}

func TestGormDBConnectionResolver_ResolveConnectionName(t *testing.T) {
	cfg := config.NewConfig()
	resolver := newResolver(t, cfg, expression.NewDefaultExpressionResolver())

	// Plain references pass through unchanged.
	name, err := resolver.ResolveConnectionName(context.Background(), nil, "metadata")
	assert.NoError(t, err)
	assert.Equal(t, "metadata", name)

	run := test.NewTestRun(t, "nightly-purge")
	name, err = resolver.ResolveConnectionName(context.Background(), run, "#{run.name}_journal")
	assert.NoError(t, err)
	assert.Equal(t, "nightly-purge_journal", name)
}
