package logging

import (
	"context"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// --- Run Execution Listener ---

type LoggingRunListener struct{}

func NewLoggingRunListener() port.RunExecutionListener {
	return &LoggingRunListener{}
}

func (l *LoggingRunListener) BeforeRun(ctx context.Context, run *model.Run) {
	logger.Infof("RunExecutionListener: BeforeRun - RunName: %s, ID: %s, Query: %q", run.Name, run.ID, run.Query)
}

func (l *LoggingRunListener) AfterRun(ctx context.Context, run *model.Run) {
	logger.Infof("RunExecutionListener: AfterRun - RunName: %s, State: %s, Chunks: %d, Failures: %d", run.Name, run.State, run.ChunksProcessed, run.FailureCount())
}

var _ port.RunExecutionListener = (*LoggingRunListener)(nil)

// --- Chunk Listener ---

type LoggingChunkListener struct{}

func NewLoggingChunkListener() port.ChunkListener {
	return &LoggingChunkListener{}
}

func (l *LoggingChunkListener) BeforeChunk(ctx context.Context, run *model.Run, chunk model.Chunk) {
	logger.Debugf("ChunkListener: BeforeChunk - RunName: %s, Sequence: %d, Records: %d", run.Name, chunk.Sequence, chunk.Size())
}

func (l *LoggingChunkListener) AfterChunk(ctx context.Context, run *model.Run, chunk model.Chunk, outcome model.RemoteOutcome) {
	if outcome.IsFailure() {
		logger.Warnf("ChunkListener: AfterChunk - RunName: %s, Sequence: %d, Kind: %s, Detail: %s", run.Name, chunk.Sequence, outcome.FailureKind, outcome.FailureDetail)
		return
	}
	logger.Debugf("ChunkListener: AfterChunk - RunName: %s, Sequence: %d, Records: %d", run.Name, chunk.Sequence, chunk.Size())
}

var _ port.ChunkListener = (*LoggingChunkListener)(nil)
