package engine

import (
	"context"
	"errors"
	"fmt"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/setwave/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
	tx "github.com/tigerroll/setwave/pkg/batch/core/tx"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// RunDriver is the in-process host for one run. It materializes the record
// identifiers from the record source, partitions them into bounded chunks,
// and drives the operator strictly sequentially: OnStart, OnChunk per chunk,
// OnFinish. One driver drives exactly one run and is not reusable.
//
// The driver also journals a RunExecution and per-chunk ChunkExecutions
// through the repository port. Journal writes are best-effort: a journal
// failure is logged and the run continues.
type RunDriver struct {
	run      *model.Run
	operator port.RunOperator
	source   port.RecordSource

	repo      repository.ExecutionRepository
	txManager tx.TransactionManager

	chunkSize      int
	failureWriter  port.FailureWriter
	reportArchiver port.ReportArchiver
	tracer         metrics.Tracer
}

// RunDriverOptions carries the optional collaborators of a RunDriver.
type RunDriverOptions struct {
	// ChunkSize bounds the identifiers per chunk; zero or less selects
	// DefaultChunkSize.
	ChunkSize int
	// FailureWriter, when set, exports the error log after the run finalizes.
	FailureWriter port.FailureWriter
	// ReportArchiver, when set, stores the completion report after the run
	// finalizes.
	ReportArchiver port.ReportArchiver
	// Tracer spans the run and its chunks; nil selects the no-op tracer.
	Tracer metrics.Tracer
}

// NewRunDriver creates the driver for one run. The repository and transaction
// manager may be nil, in which case the run executes without journaling.
func NewRunDriver(
	run *model.Run,
	operator port.RunOperator,
	source port.RecordSource,
	repo repository.ExecutionRepository,
	txManager tx.TransactionManager,
	opts RunDriverOptions,
) *RunDriver {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &RunDriver{
		run:            run,
		operator:       operator,
		source:         source,
		repo:           repo,
		txManager:      txManager,
		chunkSize:      opts.ChunkSize,
		failureWriter:  opts.FailureWriter,
		reportArchiver: opts.ReportArchiver,
		tracer:         tracer,
	}
}

// Execute drives the run from start to finish and returns its completion
// report. The returned error is non-nil only for host-level failures (record
// source errors, context cancellation, lifecycle misuse); chunk failures are
// folded into the report.
func (d *RunDriver) Execute(ctx context.Context) (model.CompletionReport, error) {
	runCtx, endRunSpan := d.tracer.StartRunSpan(ctx, d.run)
	defer endRunSpan()

	runExecution := model.NewRunExecution(d.run)
	d.journal(runCtx, "save run execution", func(txCtx context.Context) error {
		return d.repo.SaveRunExecution(txCtx, runExecution)
	})

	query, err := d.operator.OnStart(runCtx)
	if err != nil {
		return model.CompletionReport{}, err
	}
	d.syncJournal(runCtx, runExecution)

	ids, err := d.materialize(runCtx, query)
	if err != nil {
		// The run never received its identifier set, so there is nothing to
		// report; the journal keeps the run in RUNNING with no end time.
		d.tracer.RecordError(runCtx, moduleName, err)
		d.syncJournal(runCtx, runExecution)
		return model.CompletionReport{}, err
	}

	chunks := PartitionIDs(ids, d.chunkSize)
	logger.Infof("Run '%s': materialized %d identifier(s) into %d chunk(s).", d.run.Name, len(ids), len(chunks))

	for _, chunk := range chunks {
		select {
		case <-runCtx.Done():
			return model.CompletionReport{}, runCtx.Err()
		default:
		}

		chunkExecution := model.NewChunkExecution(runExecution.ID, chunk)
		d.journal(runCtx, "save chunk execution", func(txCtx context.Context) error {
			return d.repo.SaveChunkExecution(txCtx, chunkExecution)
		})

		chunkCtx, endChunkSpan := d.tracer.StartChunkSpan(runCtx, d.run, chunk)
		outcome, err := d.operator.OnChunk(chunkCtx, chunk)
		if err != nil {
			d.tracer.RecordError(chunkCtx, moduleName, err)
			endChunkSpan()
			return model.CompletionReport{}, err
		}
		endChunkSpan()

		chunkExecution.RecordOutcome(outcome)
		d.journal(runCtx, "update chunk execution", func(txCtx context.Context) error {
			return d.repo.UpdateChunkExecution(txCtx, chunkExecution)
		})
		d.syncJournal(runCtx, runExecution)
	}

	report, err := d.operator.OnFinish(runCtx)
	if err != nil {
		return model.CompletionReport{}, err
	}
	d.syncJournal(runCtx, runExecution)

	d.export(runCtx, report)
	return report, nil
}

// materialize opens the record source and drains it into an ordered
// identifier slice.
func (d *RunDriver) materialize(ctx context.Context, query string) ([]string, error) {
	if err := d.source.Open(ctx, query); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to open record source for run '%s'", d.run.Name), err, false, false)
	}
	defer func() {
		if err := d.source.Close(ctx); err != nil {
			logger.Warnf("Run '%s': failed to close record source: %v", d.run.Name, err)
		}
	}()

	var ids []string
	for {
		id, err := d.source.Next(ctx)
		if errors.Is(err, port.ErrNoMoreIDs) {
			break
		}
		if err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("record source failed for run '%s'", d.run.Name), err, false, false)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// syncJournal copies the run's current state into the journal record and
// persists it best-effort.
func (d *RunDriver) syncJournal(ctx context.Context, runExecution *model.RunExecution) {
	runExecution.SyncFromRun(d.run)
	d.journal(ctx, "update run execution", func(txCtx context.Context) error {
		return d.repo.UpdateRunExecution(txCtx, runExecution)
	})
}

// journal runs one journaling operation inside its own transaction. Failures
// are logged and swallowed; the journal never drives control flow.
func (d *RunDriver) journal(ctx context.Context, op string, fn func(txCtx context.Context) error) {
	if d.repo == nil {
		return
	}
	if d.txManager == nil {
		if err := fn(ctx); err != nil {
			logger.Warnf("Run '%s': journal %s failed: %v", d.run.Name, op, err)
		}
		return
	}

	txn, err := d.txManager.Begin(ctx)
	if err != nil {
		logger.Warnf("Run '%s': journal %s could not begin a transaction: %v", d.run.Name, op, err)
		return
	}
	if err := fn(tx.WithContext(ctx, txn)); err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			logger.Warnf("Run '%s': journal %s rollback failed: %v", d.run.Name, op, rbErr)
		}
		logger.Warnf("Run '%s': journal %s failed: %v", d.run.Name, op, err)
		return
	}
	if err := txn.Commit(); err != nil {
		logger.Warnf("Run '%s': journal %s commit failed: %v", d.run.Name, op, err)
	}
}

// export runs the optional post-run exports. Export failures never alter the
// run outcome.
func (d *RunDriver) export(ctx context.Context, report model.CompletionReport) {
	if d.failureWriter != nil {
		if err := d.failureWriter.WriteFailures(ctx, d.run); err != nil {
			logger.Errorf("Run '%s': failure export failed: %v", d.run.Name, err)
		}
	}
	if d.reportArchiver != nil {
		if err := d.reportArchiver.Archive(ctx, d.run, report); err != nil {
			logger.Errorf("Run '%s': report archive failed: %v", d.run.Name, err)
		}
	}
}
