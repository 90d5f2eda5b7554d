package usecase

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	support "github.com/tigerroll/setwave/pkg/batch/core/config/support"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/setwave/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
	ports "github.com/tigerroll/setwave/pkg/batch/core/ports"
	tx "github.com/tigerroll/setwave/pkg/batch/core/tx"
	engine "github.com/tigerroll/setwave/pkg/batch/engine"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// SimpleRunLauncher implements RunLauncher for in-process execution. It
// assembles the run through the RunFactory, builds the orchestrator and its
// driver, and blocks until the run finalizes. One Launch call drives exactly
// one run; the launcher itself is reusable and stateless between calls.
type SimpleRunLauncher struct {
	factory        *support.RunFactory
	cfg            *config.Config
	executor       port.ScriptExecutor
	notifier       ports.Notifier
	repo           repository.ExecutionRepository
	txManager      tx.TransactionManager
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
	runListeners   []port.RunExecutionListener
	chunkListeners []port.ChunkListener
}

// Verify that SimpleRunLauncher implements the RunLauncher interface.
var _ RunLauncher = (*SimpleRunLauncher)(nil)

// SimpleRunLauncherParams defines the dependencies injected into NewSimpleRunLauncher.
// The journal, notifier, and observability collaborators are optional; a
// launcher without them still drives runs, it just journals and observes less.
type SimpleRunLauncherParams struct {
	fx.In
	Factory        *support.RunFactory
	Cfg            *config.Config
	Executor       port.ScriptExecutor
	Notifier       ports.Notifier                 `optional:"true"`
	Repo           repository.ExecutionRepository `optional:"true"`
	TxManager      tx.TransactionManager          `name:"metadata" optional:"true"`
	MetricRecorder metrics.MetricRecorder         `optional:"true"`
	Tracer         metrics.Tracer                 `optional:"true"`
	RunListeners   []port.RunExecutionListener    `group:"runListeners"`
	ChunkListeners []port.ChunkListener           `group:"chunkListeners"`
}

// NewSimpleRunLauncher creates a new SimpleRunLauncher.
func NewSimpleRunLauncher(p SimpleRunLauncherParams) *SimpleRunLauncher {
	return &SimpleRunLauncher{
		factory:        p.Factory,
		cfg:            p.Cfg,
		executor:       p.Executor,
		notifier:       p.Notifier,
		repo:           p.Repo,
		txManager:      p.TxManager,
		metricRecorder: p.MetricRecorder,
		tracer:         p.Tracer,
		runListeners:   p.RunListeners,
		chunkListeners: p.ChunkListeners,
	}
}

// Launch assembles and executes the run for the given definition ID.
func (l *SimpleRunLauncher) Launch(ctx context.Context, runID string) (model.CompletionReport, error) {
	logger.Infof("Launching run definition '%s'.", displayRunID(runID))

	assembly, err := l.factory.CreateRun(runID)
	if err != nil {
		return model.CompletionReport{}, exception.NewBatchError("run_launcher",
			fmt.Sprintf("failed to assemble run definition '%s'", displayRunID(runID)), err, false, false)
	}

	orchestrator := engine.NewChunkOrchestrator(
		assembly.Run,
		l.executor,
		l.notifier,
		l.runListeners,
		l.chunkListeners,
		l.metricRecorder,
	)

	driver := engine.NewRunDriver(
		assembly.Run,
		orchestrator,
		assembly.Source,
		l.repo,
		l.txManager,
		engine.RunDriverOptions{
			ChunkSize:      l.chunkSizeFor(assembly.Definition.ChunkSize),
			FailureWriter:  assembly.FailureWriter,
			ReportArchiver: assembly.ReportArchiver,
			Tracer:         l.tracer,
		},
	)

	report, err := driver.Execute(ctx)
	if err != nil {
		return model.CompletionReport{}, err
	}

	logger.Infof("Run '%s' completed: %d failure(s).", report.RunName, report.FailureCount)
	return report, nil
}

// chunkSizeFor picks the effective chunk size: the definition's override when
// positive, otherwise the configured default, otherwise the engine default.
func (l *SimpleRunLauncher) chunkSizeFor(definitionSize int) int {
	if definitionSize > 0 {
		return definitionSize
	}
	if l.cfg != nil && l.cfg.Setwave.Batch.ChunkSize > 0 {
		return l.cfg.Setwave.Batch.ChunkSize
	}
	return engine.DefaultChunkSize
}

// displayRunID renders an empty run ID as its meaning for log output.
func displayRunID(runID string) string {
	if runID == "" {
		return "(default)"
	}
	return runID
}
