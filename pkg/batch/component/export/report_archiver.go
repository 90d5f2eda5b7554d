package export

import (
	"context"
	"fmt"
	"path"
	"strings"

	storageAdapter "github.com/tigerroll/setwave/pkg/batch/adapter/storage"
	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// reportArchiverConfig holds the run definition properties for StorageReportArchiver.
type reportArchiverConfig struct {
	// StorageRef is the name of the storage connection to write through.
	StorageRef string `yaml:"storage_ref"`
	// Bucket overrides the connection's default bucket.
	Bucket string `yaml:"bucket"`
	// OutputBaseDir is the object name prefix for archived reports. It may
	// contain #{...} expressions, resolved against the run at archive time.
	OutputBaseDir string `yaml:"output_base_dir"`
}

// StorageReportArchiver implements port.ReportArchiver by writing the
// completion report as a plain text object.
type StorageReportArchiver struct {
	cfg             reportArchiverConfig
	storageResolver storageAdapter.StorageConnectionResolver
	exprResolver    port.ExpressionResolver
}

// NewStorageReportArchiver creates a new StorageReportArchiver.
func NewStorageReportArchiver(
	cfg reportArchiverConfig,
	storageResolver storageAdapter.StorageConnectionResolver,
	exprResolver port.ExpressionResolver,
) *StorageReportArchiver {
	return &StorageReportArchiver{
		cfg:             cfg,
		storageResolver: storageResolver,
		exprResolver:    exprResolver,
	}
}

// Archive stores the completion report as subject and body separated by a
// blank line. The storage connection is owned by its provider and stays open.
func (a *StorageReportArchiver) Archive(ctx context.Context, run *model.Run, report model.CompletionReport) error {
	connName, err := a.storageResolver.ResolveStorageConnectionName(ctx, run, a.cfg.StorageRef)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve storage connection name '%s'", a.cfg.StorageRef), err, false, false)
	}
	conn, err := a.storageResolver.ResolveStorageConnection(ctx, connName)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve storage connection '%s'", connName), err, false, false)
	}

	baseDir := a.cfg.OutputBaseDir
	if baseDir == "" {
		baseDir = "reports"
	} else if a.exprResolver != nil {
		resolved, err := a.exprResolver.Resolve(ctx, baseDir, run)
		if err != nil {
			return exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve output directory '%s'", baseDir), err, false, false)
		}
		baseDir = resolved
	}
	objectName := path.Join(baseDir, exportFileName("report", report.RunName, "txt"))

	content := report.Subject + "\n\n" + report.Body
	if err := conn.Upload(ctx, a.cfg.Bucket, objectName, strings.NewReader(content), "text/plain; charset=utf-8"); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to upload completion report '%s'", objectName), err, false, true)
	}

	logger.Infof("StorageReportArchiver: archived completion report for run '%s' to '%s'.", report.RunName, objectName)
	return nil
}

// NewReportArchiverComponentBuilder creates a rundef.ComponentBuilder for
// StorageReportArchiver. The storage resolver is closed over from the
// application graph.
func NewReportArchiverComponentBuilder(storageResolver storageAdapter.StorageConnectionResolver) rundef.ComponentBuilder {
	return func(
		_ *config.Config,
		exprResolver port.ExpressionResolver,
		_ coreAdapter.ResourceConnectionResolver,
		properties map[string]string,
	) (interface{}, error) {
		var cfg reportArchiverConfig
		if err := configbinder.BindStringProperties(properties, &cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to decode reportArchiver properties", err, false, false)
		}
		if cfg.StorageRef == "" {
			return nil, exception.NewBatchErrorf(moduleName, "reportArchiver requires a 'storage_ref' property")
		}
		return NewStorageReportArchiver(cfg, storageResolver, exprResolver), nil
	}
}

// Verify that StorageReportArchiver implements the port.ReportArchiver interface at compile time.
var _ port.ReportArchiver = (*StorageReportArchiver)(nil)
