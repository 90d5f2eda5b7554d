// Package source provides the record source implementations shipped with the
// engine: a fixed identifier list, a line-oriented file, and a SQL query
// executed through a resolved database connection.
package source

import (
	"context"
	"strings"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

const moduleName = "source"

// StaticSource yields a fixed identifier list configured on the run
// definition. The record-source descriptor passed to Open is ignored; it only
// appears in the completion report.
type StaticSource struct {
	ids []string
	pos int
}

// NewStaticSource creates a StaticSource over the given identifier list.
func NewStaticSource(ids []string) *StaticSource {
	return &StaticSource{ids: ids}
}

// Open resets the source to the beginning of its identifier list.
func (s *StaticSource) Open(ctx context.Context, query string) error {
	s.pos = 0
	logger.Debugf("StaticSource opened with %d identifier(s).", len(s.ids))
	return nil
}

// Next returns the next identifier, or port.ErrNoMoreIDs once the list is
// exhausted.
func (s *StaticSource) Next(ctx context.Context) (string, error) {
	if s.pos >= len(s.ids) {
		return "", port.ErrNoMoreIDs
	}
	id := s.ids[s.pos]
	s.pos++
	return id, nil
}

// Close releases nothing; the list lives in memory.
func (s *StaticSource) Close(ctx context.Context) error {
	return nil
}

// ParseIDList splits a property value into an identifier list. Identifiers
// are separated by commas or newlines; surrounding whitespace is trimmed and
// empty entries are skipped.
func ParseIDList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	ids := make([]string, 0, len(fields))
	for _, field := range fields {
		id := strings.TrimSpace(field)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// NewStaticSourceComponentBuilder creates a rundef.ComponentBuilder for StaticSource.
// The 'ids' property carries the identifier list.
func NewStaticSourceComponentBuilder() rundef.ComponentBuilder {
	return func(
		_ *config.Config,
		_ port.ExpressionResolver,
		_ coreAdapter.ResourceConnectionResolver,
		properties map[string]string,
	) (interface{}, error) {
		ids := ParseIDList(properties["ids"])
		if len(ids) == 0 {
			return nil, exception.NewBatchErrorf(moduleName, "staticSource requires a non-empty 'ids' property")
		}
		return NewStaticSource(ids), nil
	}
}

// Verify that StaticSource implements the port.RecordSource interface at compile time.
var _ port.RecordSource = (*StaticSource)(nil)
