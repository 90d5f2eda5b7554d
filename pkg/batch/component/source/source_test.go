package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/setwave/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/setwave/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/setwave/pkg/batch/component/source"
	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	coreconfig "github.com/tigerroll/setwave/pkg/batch/core/config"
	"github.com/tigerroll/setwave/pkg/batch/test"
)

// drain reads the source until exhaustion and returns the yielded identifiers.
func drain(t *testing.T, s port.RecordSource) []string {
	t.Helper()
	ctx := context.Background()
	var ids []string
	for {
		id, err := s.Next(ctx)
		if errors.Is(err, port.ErrNoMoreIDs) {
			return ids
		}
		require.NoError(t, err)
		ids = append(ids, id)
	}
}

func TestStaticSource_YieldsConfiguredIDs(t *testing.T) {
	s := source.NewStaticSource([]string{"a", "b", "c"})
	require.NoError(t, s.Open(context.Background(), "ignored descriptor"))
	defer s.Close(context.Background())

	assert.Equal(t, []string{"a", "b", "c"}, drain(t, s))

	// Reopening resets the cursor.
	require.NoError(t, s.Open(context.Background(), ""))
	assert.Equal(t, []string{"a", "b", "c"}, drain(t, s))
}

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, source.ParseIDList("a, b ,c"))
	assert.Equal(t, []string{"x", "y"}, source.ParseIDList("x\n\n  y  \n"))
	assert.Empty(t, source.ParseIDList("  , \n ,"))
}

func TestStaticSourceBuilder(t *testing.T) {
	builder := source.NewStaticSourceComponentBuilder()

	instance, err := builder(coreconfig.NewConfig(), nil, nil, map[string]string{"ids": "1,2,3"})
	require.NoError(t, err)
	s, ok := instance.(port.RecordSource)
	require.True(t, ok)
	require.NoError(t, s.Open(context.Background(), ""))
	assert.Equal(t, []string{"1", "2", "3"}, drain(t, s))

	_, err = builder(coreconfig.NewConfig(), nil, nil, map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'ids' property")
}

func TestFileSource_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\n\n  beta  \n\ngamma\n"), 0644))

	s := source.NewFileSource(path)
	require.NoError(t, s.Open(context.Background(), "stale sessions"))
	defer s.Close(context.Background())

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, drain(t, s))
}

func TestFileSource_DescriptorNamesThePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0644))

	s := source.NewFileSource("")
	require.NoError(t, s.Open(context.Background(), path))
	defer s.Close(context.Background())

	assert.Equal(t, []string{"one", "two"}, drain(t, s))
}

func TestFileSource_OpenErrors(t *testing.T) {
	s := source.NewFileSource("")
	err := s.Open(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no file path")

	err = s.Open(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open identifier file")
}

func newMockedSQLSource(t *testing.T) (*source.SQLSource, sqlmock.Sqlmock, func()) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	dbConn := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mock_db"}, "metadata")
	s := source.NewSQLSource(test.NewTestSingleConnectionResolver(dbConn), "metadata")

	cleanup := func() {
		mock.ExpectClose()
		sqlDB.Close()
	}
	return s, mock, cleanup
}

func TestSQLSource_PlucksIdentifiers(t *testing.T) {
	s, mock, cleanup := newMockedSQLSource(t)
	defer cleanup()

	query := "SELECT id FROM events WHERE expired = true"
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt-1").AddRow("evt-2").AddRow("evt-3"))

	require.NoError(t, s.Open(context.Background(), query))
	defer s.Close(context.Background())

	assert.Equal(t, []string{"evt-1", "evt-2", "evt-3"}, drain(t, s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_QueryFailure(t *testing.T) {
	s, mock, cleanup := newMockedSQLSource(t)
	defer cleanup()

	query := "SELECT id FROM missing_table"
	mock.ExpectQuery(query).WillReturnError(errors.New("table vanished"))

	err := s.Open(context.Background(), query)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identifier query failed")
}

func TestSQLSource_BlankQuery(t *testing.T) {
	s, _, cleanup := newMockedSQLSource(t)
	defer cleanup()

	err := s.Open(context.Background(), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blank query descriptor")
}

func TestSQLSource_ResolverFailure(t *testing.T) {
	resolver := new(test.MockDBConnectionResolver)
	resolver.On("ResolveConnectionName", testify_mock.Anything, testify_mock.Anything, "metadata").Return("metadata", nil)
	resolver.On("ResolveConnection", testify_mock.Anything, "metadata").Return(nil, errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))

	s := source.NewSQLSource(resolver, "metadata")
	err := s.Open(context.Background(), "SELECT id FROM events WHERE expired = true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve database connection 'metadata'")
	resolver.AssertExpectations(t)
}

func TestSQLSourceBuilder(t *testing.T) {
	builder := source.NewSQLSourceComponentBuilder()
	resolver := test.NewTestSingleConnectionResolver(nil)

	t.Run("ExplicitDBRef", func(t *testing.T) {
		instance, err := builder(coreconfig.NewConfig(), nil, resolver, map[string]string{"db_ref": "workload"})
		require.NoError(t, err)
		_, ok := instance.(port.RecordSource)
		assert.True(t, ok)
	})

	t.Run("FallsBackToRepositoryRef", func(t *testing.T) {
		cfg := coreconfig.NewConfig()
		instance, err := builder(cfg, nil, resolver, map[string]string{})
		require.NoError(t, err)
		assert.NotNil(t, instance)
	})

	t.Run("MissingResolver", func(t *testing.T) {
		_, err := builder(coreconfig.NewConfig(), nil, nil, map[string]string{"db_ref": "workload"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection resolver")
	})
}
