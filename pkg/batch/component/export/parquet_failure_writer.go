// Package export provides the post-run export components: a Parquet failure
// writer for the run's error log and an archiver for the completion report.
// Both write through the object storage adapter layer and never alter the
// run outcome.
package export

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

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

const moduleName = "export"

// FailureRow is the Parquet row schema for one error log entry.
type FailureRow struct {
	RunID      string `parquet:"name=run_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunName    string `parquet:"name=run_name,type=BYTE_ARRAY,convertedtype=UTF8"`
	Sequence   int32  `parquet:"name=sequence,type=INT32"`
	Entry      string `parquet:"name=entry,type=BYTE_ARRAY,convertedtype=UTF8"`
	FinishedAt int64  `parquet:"name=finished_at,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
}

// parquetFailureWriterConfig holds the run definition properties for ParquetFailureWriter.
type parquetFailureWriterConfig struct {
	// StorageRef is the name of the storage connection to write through.
	StorageRef string `yaml:"storage_ref"`
	// Bucket overrides the connection's default bucket.
	Bucket string `yaml:"bucket"`
	// OutputBaseDir is the object name prefix for exported files. It may
	// contain #{...} expressions, resolved against the run at export time.
	OutputBaseDir string `yaml:"output_base_dir"`
	// CompressionType is the Parquet compression codec ("SNAPPY", "GZIP", "NONE").
	CompressionType string `yaml:"compression_type"`
}

// ParquetFailureWriter implements port.FailureWriter by writing one Parquet
// object per run, one row per error log entry.
type ParquetFailureWriter struct {
	cfg             parquetFailureWriterConfig
	storageResolver storageAdapter.StorageConnectionResolver
	exprResolver    port.ExpressionResolver
}

// NewParquetFailureWriter creates a new ParquetFailureWriter.
func NewParquetFailureWriter(
	cfg parquetFailureWriterConfig,
	storageResolver storageAdapter.StorageConnectionResolver,
	exprResolver port.ExpressionResolver,
) *ParquetFailureWriter {
	return &ParquetFailureWriter{
		cfg:             cfg,
		storageResolver: storageResolver,
		exprResolver:    exprResolver,
	}
}

// WriteFailures exports the run's error log as a Parquet object. A run with
// an empty error log writes nothing. The storage connection is owned by its
// provider and stays open for later exports.
func (w *ParquetFailureWriter) WriteFailures(ctx context.Context, run *model.Run) error {
	if run.Errors.IsEmpty() {
		logger.Infof("ParquetFailureWriter: run '%s' recorded no failures, skipping export.", run.Name)
		return nil
	}

	connName, err := w.storageResolver.ResolveStorageConnectionName(ctx, run, w.cfg.StorageRef)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve storage connection name '%s'", w.cfg.StorageRef), err, false, false)
	}
	conn, err := w.storageResolver.ResolveStorageConnection(ctx, connName)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve storage connection '%s'", connName), err, false, false)
	}

	compressionCodec, err := getCompressionCodec(w.cfg.CompressionType)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("invalid compression type '%s'", w.cfg.CompressionType), err, false, false)
	}

	rows := buildFailureRows(run)

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(FailureRow), int64(len(rows)))
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to create Parquet writer for run '%s'", run.Name), err, false, false)
	}
	pw.CompressionType = compressionCodec

	var multiErr error
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError(
				moduleName,
				fmt.Sprintf("failed to write failure row %d for run '%s'", row.Sequence, run.Name),
				err, false, false,
			))
			break
		}
	}

	// WriteStop finalizes the file footer; the library panics on some schema
	// errors, so recover and fold the panic into the error aggregate.
	func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("parquet writer panicked during WriteStop for run '%s': %v", run.Name, r)
				multiErr = multierror.Append(multiErr, exception.NewBatchError(moduleName, err.Error(), err, false, false))
				logger.Errorf("ParquetFailureWriter: recovered from panic during WriteStop: %v", r)
			}
		}()
		if err := pw.WriteStop(); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError(
				moduleName,
				fmt.Sprintf("failed to finalize Parquet file for run '%s'", run.Name),
				err, false, false,
			))
		}
	}()

	// An object that failed to serialize is not worth uploading.
	if multiErr != nil {
		return multiErr
	}

	baseDir, err := w.resolveBaseDir(ctx, run, "failures")
	if err != nil {
		return err
	}
	objectName := path.Join(baseDir, exportFileName("failures", run.Name, "parquet"))

	logger.Debugf("ParquetFailureWriter: uploading %d bytes to '%s'.", buf.Len(), objectName)
	if err := conn.Upload(ctx, w.cfg.Bucket, objectName, buf, "application/octet-stream"); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to upload failure export '%s'", objectName), err, false, true)
	}

	logger.Infof("ParquetFailureWriter: exported %d failure row(s) for run '%s' to '%s'.", len(rows), run.Name, objectName)
	return nil
}

// resolveBaseDir expands expressions in the configured output directory
// against the finished run, falling back to the given default.
func (w *ParquetFailureWriter) resolveBaseDir(ctx context.Context, run *model.Run, fallback string) (string, error) {
	baseDir := w.cfg.OutputBaseDir
	if baseDir == "" {
		return fallback, nil
	}
	if w.exprResolver == nil {
		return baseDir, nil
	}
	resolved, err := w.exprResolver.Resolve(ctx, baseDir, run)
	if err != nil {
		return "", exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve output directory '%s'", baseDir), err, false, false)
	}
	return resolved, nil
}

// buildFailureRows converts the run's error log into Parquet rows. Entries
// keep their insertion order; Sequence is the position in the log.
func buildFailureRows(run *model.Run) []FailureRow {
	finishedAt := time.Now().UTC()
	if run.EndTime != nil {
		finishedAt = run.EndTime.UTC()
	}

	rows := make([]FailureRow, 0, run.Errors.Len())
	for i, entry := range run.Errors {
		rows = append(rows, FailureRow{
			RunID:      run.ID,
			RunName:    run.Name,
			Sequence:   int32(i),
			Entry:      entry,
			FinishedAt: finishedAt.UnixMilli(),
		})
	}
	return rows
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// exportFileName builds a collision-resistant object file name carrying the
// run name, a UTC timestamp, and a short random suffix.
func exportFileName(kind, runName, extension string) string {
	return fmt.Sprintf("%s_%s_%s_%s.%s", kind, runName, time.Now().UTC().Format("20060102150405"), randomSuffix(8), extension)
}

// randomSuffix generates a random string of the specified length.
func randomSuffix(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}

// NewParquetFailureWriterComponentBuilder creates a rundef.ComponentBuilder
// for ParquetFailureWriter. The storage resolver is closed over from the
// application graph; run definition properties select the connection and
// output location.
func NewParquetFailureWriterComponentBuilder(storageResolver storageAdapter.StorageConnectionResolver) rundef.ComponentBuilder {
	return func(
		_ *config.Config,
		exprResolver port.ExpressionResolver,
		_ coreAdapter.ResourceConnectionResolver,
		properties map[string]string,
	) (interface{}, error) {
		var cfg parquetFailureWriterConfig
		if err := configbinder.BindStringProperties(properties, &cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to decode parquetFailureWriter properties", err, false, false)
		}
		if cfg.StorageRef == "" {
			return nil, exception.NewBatchErrorf(moduleName, "parquetFailureWriter requires a 'storage_ref' property")
		}
		if _, err := getCompressionCodec(cfg.CompressionType); err != nil {
			return nil, exception.NewBatchError(moduleName, "parquetFailureWriter rejected its compression configuration", err, false, false)
		}
		return NewParquetFailureWriter(cfg, storageResolver, exprResolver), nil
	}
}

// Verify that ParquetFailureWriter implements the port.FailureWriter interface at compile time.
var _ port.FailureWriter = (*ParquetFailureWriter)(nil)
