package sql

import (
	"time"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// RunExecutionEntity is a schema model used for persistence.
type RunExecutionEntity struct {
	ID             string
	RunID          string
	RunName        string
	Query          string
	TemplateDigest string
	State          model.RunState
	StartTime      time.Time
	EndTime        *time.Time
	ChunkCount     int
	FailureCount   int
	Failures       model.ErrorLog
	CreateTime     time.Time
	LastUpdated    time.Time
	Version        int
}

func (RunExecutionEntity) TableName() string {
	return "batch_run_execution"
}

// ChunkExecutionEntity is a schema model used for persistence.
type ChunkExecutionEntity struct {
	ID             string
	RunExecutionID string
	Sequence       int
	Descriptor     string
	RecordCount    int
	Succeeded      bool
	FailureKind    model.FailureKind
	FailureDetail  string
	SubmittedAt    time.Time
	CompletedAt    *time.Time
	LastUpdated    time.Time
	Version        int
}

func (ChunkExecutionEntity) TableName() string {
	return "batch_chunk_execution"
}
