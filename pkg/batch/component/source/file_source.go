package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// FileSource yields one identifier per line of a text file. Blank lines and
// surrounding whitespace are skipped. When no 'path' property is configured,
// the record-source descriptor itself is treated as the file path.
type FileSource struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
}

// NewFileSource creates a FileSource. An empty path defers path selection to
// the descriptor passed to Open.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Open opens the identifier file and positions the source at its first line.
func (s *FileSource) Open(ctx context.Context, query string) error {
	path := s.path
	if path == "" {
		path = strings.TrimSpace(query)
	}
	if path == "" {
		return exception.NewBatchErrorf(moduleName, "fileSource has no file path: neither the 'path' property nor the query descriptor is set")
	}

	file, err := os.Open(path)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to open identifier file '%s'", path), err, false, false)
	}
	s.file = file
	s.scanner = bufio.NewScanner(file)
	logger.Debugf("FileSource opened '%s'.", path)
	return nil
}

// Next returns the next non-blank line, or port.ErrNoMoreIDs at end of file.
func (s *FileSource) Next(ctx context.Context) (string, error) {
	if s.scanner == nil {
		return "", exception.NewBatchErrorf(moduleName, "fileSource is not open")
	}
	for s.scanner.Scan() {
		id := strings.TrimSpace(s.scanner.Text())
		if id == "" {
			continue
		}
		return id, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", exception.NewBatchError(moduleName, "failed to read identifier file", err, false, false)
	}
	return "", port.ErrNoMoreIDs
}

// Close closes the underlying file.
func (s *FileSource) Close(ctx context.Context) error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.scanner = nil
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to close identifier file", err, false, false)
	}
	return nil
}

// NewFileSourceComponentBuilder creates a rundef.ComponentBuilder for FileSource.
// The optional 'path' property pins the file; otherwise the run's query
// descriptor names it.
func NewFileSourceComponentBuilder() rundef.ComponentBuilder {
	return func(
		_ *config.Config,
		_ port.ExpressionResolver,
		_ coreAdapter.ResourceConnectionResolver,
		properties map[string]string,
	) (interface{}, error) {
		return NewFileSource(strings.TrimSpace(properties["path"])), nil
	}
}

// Verify that FileSource implements the port.RecordSource interface at compile time.
var _ port.RecordSource = (*FileSource)(nil)
