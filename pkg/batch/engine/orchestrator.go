// Package engine drives runs through their lifecycle. The ChunkOrchestrator
// owns the per-run state machine and the per-chunk compose/execute/record
// cycle; the RunDriver is the in-process host that feeds it chunks.
package engine

import (
	"context"
	"fmt"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	compose "github.com/tigerroll/setwave/pkg/batch/core/compose"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
	ports "github.com/tigerroll/setwave/pkg/batch/core/ports"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

const moduleName = "engine"

// ChunkOrchestrator implements port.RunOperator for one Run. It holds the
// run's state machine, composes and submits one script per chunk, and folds
// every remote failure into the run's error log instead of propagating it.
//
// The orchestrator is not safe for concurrent use; the host guarantees
// at-most-one-active-call per run instance.
type ChunkOrchestrator struct {
	run      *model.Run
	executor port.ScriptExecutor
	notifier ports.Notifier

	runListeners   []port.RunExecutionListener
	chunkListeners []port.ChunkListener
	metricRecorder metrics.MetricRecorder
}

// NewChunkOrchestrator creates the orchestrator for one run. The notifier may
// be nil when the run never notifies; listeners may be empty.
func NewChunkOrchestrator(
	run *model.Run,
	executor port.ScriptExecutor,
	notifier ports.Notifier,
	runListeners []port.RunExecutionListener,
	chunkListeners []port.ChunkListener,
	metricRecorder metrics.MetricRecorder,
) *ChunkOrchestrator {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	return &ChunkOrchestrator{
		run:            run,
		executor:       executor,
		notifier:       notifier,
		runListeners:   runListeners,
		chunkListeners: chunkListeners,
		metricRecorder: metricRecorder,
	}
}

// Run returns the run this orchestrator drives.
func (o *ChunkOrchestrator) Run() *model.Run {
	return o.run
}

func (o *ChunkOrchestrator) notifyBeforeRun(ctx context.Context) {
	for _, l := range o.runListeners {
		l.BeforeRun(ctx, o.run)
	}
}

func (o *ChunkOrchestrator) notifyAfterRun(ctx context.Context) {
	for _, l := range o.runListeners {
		l.AfterRun(ctx, o.run)
	}
}

func (o *ChunkOrchestrator) notifyBeforeChunk(ctx context.Context, chunk model.Chunk) {
	for _, l := range o.chunkListeners {
		l.BeforeChunk(ctx, o.run, chunk)
	}
}

func (o *ChunkOrchestrator) notifyAfterChunk(ctx context.Context, chunk model.Chunk, outcome model.RemoteOutcome) {
	for _, l := range o.chunkListeners {
		l.AfterChunk(ctx, o.run, chunk, outcome)
	}
}

// OnStart implements port.RunOperator. It transitions the run to RUNNING and
// hands the record-source descriptor back to the host.
func (o *ChunkOrchestrator) OnStart(ctx context.Context) (string, error) {
	if err := o.run.MarkAsStarted(); err != nil {
		return "", err
	}

	o.notifyBeforeRun(ctx)
	logger.Infof("Run '%s' (ID: %s) started.", o.run.Name, o.run.ID)
	return o.run.Query, nil
}

// OnChunk implements port.RunOperator. Remote failures are recorded into the
// run's error log and returned as data; only caller errors (a chunk while not
// RUNNING, an empty chunk) surface as Go errors.
func (o *ChunkOrchestrator) OnChunk(ctx context.Context, chunk model.Chunk) (model.RemoteOutcome, error) {
	if o.run.State != model.RunStateRunning {
		return model.RemoteOutcome{}, exception.NewLifecycleViolationError(moduleName,
			fmt.Sprintf("Run (ID: %s): OnChunk called in state %s", o.run.ID, o.run.State))
	}

	o.notifyBeforeChunk(ctx, chunk)

	script, err := compose.Compose(o.run.Template, chunk.IDs)
	if err != nil {
		return model.RemoteOutcome{}, err
	}

	outcome := o.executor.Execute(ctx, script)

	if !outcome.Succeeded {
		descriptor := chunk.Descriptor()
		o.run.RecordFailure(descriptor, outcome.FailureDetail)
		logger.Warnf("Run '%s': chunk %d failed (%s): %s", o.run.Name, chunk.Sequence, outcome.FailureKind, outcome.FailureDetail)
	}
	o.run.MarkChunkProcessed()

	o.notifyAfterChunk(ctx, chunk, outcome)
	return outcome, nil
}

// OnFinish implements port.RunOperator. It finalizes the run, builds the
// completion report, and delivers it when the run asks for notification.
// Delivery failure is logged and counted but never fails the run.
func (o *ChunkOrchestrator) OnFinish(ctx context.Context) (model.CompletionReport, error) {
	if err := o.run.MarkAsFinished(); err != nil {
		return model.CompletionReport{}, err
	}

	report := model.BuildCompletionReport(o.run)

	if o.run.NotifyOnCompletion {
		if o.notifier == nil {
			logger.Warnf("Run '%s' requests completion notification but no notifier is configured.", o.run.Name)
		} else {
			err := o.notifier.Deliver(ctx, report.Subject, report.Body)
			if err != nil {
				logger.Errorf("Run '%s': failed to deliver completion report: %v", o.run.Name, err)
			}
			o.metricRecorder.RecordNotification(ctx, o.run.Name, err == nil)
		}
	}

	o.notifyAfterRun(ctx)
	logger.Infof("Run '%s' finished: %d chunk(s), %d error(s).", o.run.Name, o.run.ChunksProcessed, o.run.FailureCount())
	return report, nil
}

var _ port.RunOperator = (*ChunkOrchestrator)(nil)
