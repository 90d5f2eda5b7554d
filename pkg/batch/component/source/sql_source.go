package source

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// gormConnection is the accessor a resolved connection must expose for the
// SQL source to run raw queries through GORM.
type gormConnection interface {
	GetGormDB() *gorm.DB
}

// SQLSource yields the identifiers selected by the run's query descriptor,
// executed as raw SQL against a named database connection. The whole result
// set is materialized on Open; the first selected column is the identifier.
type SQLSource struct {
	connResolver coreAdapter.ResourceConnectionResolver
	dbRef        string

	ids []string
	pos int
}

// NewSQLSource creates a SQLSource reading through the named connection.
func NewSQLSource(connResolver coreAdapter.ResourceConnectionResolver, dbRef string) *SQLSource {
	return &SQLSource{
		connResolver: connResolver,
		dbRef:        dbRef,
	}
}

// Open executes the query descriptor and buffers the selected identifiers.
func (s *SQLSource) Open(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return exception.NewBatchErrorf(moduleName, "sqlSource received a blank query descriptor")
	}

	name, err := s.connResolver.ResolveConnectionName(ctx, nil, s.dbRef)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve connection name '%s'", s.dbRef), err, false, false)
	}

	conn, err := s.connResolver.ResolveConnection(ctx, name)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve database connection '%s'", name), err, false, false)
	}

	gormConn, ok := conn.(gormConnection)
	if !ok {
		return exception.NewBatchErrorf(moduleName, "database connection '%s' does not expose a GORM handle", name)
	}

	var ids []string
	if err := gormConn.GetGormDB().WithContext(ctx).Raw(query).Pluck("id", &ids).Error; err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("identifier query failed on connection '%s'", name), err, false, true)
	}

	s.ids = ids
	s.pos = 0
	logger.Debugf("SQLSource materialized %d identifier(s) from connection '%s'.", len(ids), name)
	return nil
}

// Next returns the next buffered identifier, or port.ErrNoMoreIDs once the
// result set is exhausted.
func (s *SQLSource) Next(ctx context.Context) (string, error) {
	if s.pos >= len(s.ids) {
		return "", port.ErrNoMoreIDs
	}
	id := s.ids[s.pos]
	s.pos++
	return id, nil
}

// Close drops the buffered identifiers. The database connection itself is
// owned by its provider and stays open.
func (s *SQLSource) Close(ctx context.Context) error {
	s.ids = nil
	s.pos = 0
	return nil
}

// NewSQLSourceComponentBuilder creates a rundef.ComponentBuilder for SQLSource.
// The 'db_ref' property names the database connection; when absent, the
// configured run repository connection is used.
func NewSQLSourceComponentBuilder() rundef.ComponentBuilder {
	return func(
		cfg *config.Config,
		_ port.ExpressionResolver,
		connResolver coreAdapter.ResourceConnectionResolver,
		properties map[string]string,
	) (interface{}, error) {
		if connResolver == nil {
			return nil, exception.NewBatchErrorf(moduleName, "sqlSource requires a database connection resolver")
		}
		dbRef := strings.TrimSpace(properties["db_ref"])
		if dbRef == "" {
			dbRef = cfg.Setwave.Infrastructure.RunRepositoryDBRef
		}
		if dbRef == "" {
			return nil, exception.NewBatchErrorf(moduleName, "sqlSource requires a 'db_ref' property or a configured run repository connection")
		}
		return NewSQLSource(connResolver, dbRef), nil
	}
}

// Verify that SQLSource implements the port.RecordSource interface at compile time.
var _ port.RecordSource = (*SQLSource)(nil)
