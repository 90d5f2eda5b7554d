package inmemory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/setwave/pkg/batch/core/domain/repository"
	"github.com/tigerroll/setwave/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/setwave/pkg/batch/test"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryExecutionRepository_RunExecutionLifecycle(t *testing.T) {
	repo := inmemory.NewInMemoryExecutionRepository()
	ctx := context.Background()

	execution := test.NewTestRunExecution(t, "nightly-purge")
	assert.NoError(t, repo.SaveRunExecution(ctx, execution))

	// Saving the same ID twice is an error.
	err := repo.SaveRunExecution(ctx, execution)
	assert.Error(t, err)

	found, err := repo.FindRunExecutionByID(ctx, execution.ID)
	assert.NoError(t, err)
	assert.Equal(t, execution.ID, found.ID)
	assert.Equal(t, "nightly-purge", found.RunName)
	assert.Equal(t, model.RunStateNotStarted, found.State)

	execution.State = model.RunStateRunning
	execution.ChunkCount = 2
	assert.NoError(t, repo.UpdateRunExecution(ctx, execution))

	found, err = repo.FindRunExecutionByID(ctx, execution.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.RunStateRunning, found.State)
	assert.Equal(t, 2, found.ChunkCount)
}

func TestInMemoryExecutionRepository_FindRunExecutionByID_NotFound(t *testing.T) {
	repo := inmemory.NewInMemoryExecutionRepository()

	found, err := repo.FindRunExecutionByID(context.Background(), "no-such-id")
	assert.Nil(t, found)
	assert.True(t, errors.Is(err, repository.ErrRunExecutionNotFound))
}

func TestInMemoryExecutionRepository_UpdateRunExecution_NotSaved(t *testing.T) {
	repo := inmemory.NewInMemoryExecutionRepository()
	execution := test.NewTestRunExecution(t, "nightly-purge")

	err := repo.UpdateRunExecution(context.Background(), execution)
	assert.Error(t, err)
}

func TestInMemoryExecutionRepository_FindLatestRunExecutionByName(t *testing.T) {
	repo := inmemory.NewInMemoryExecutionRepository()
	ctx := context.Background()

	older := test.NewTestRunExecution(t, "nightly-purge")
	older.CreateTime = time.Now().Add(-time.Hour)
	assert.NoError(t, repo.SaveRunExecution(ctx, older))

	newer := test.NewTestRunExecution(t, "nightly-purge")
	assert.NoError(t, repo.SaveRunExecution(ctx, newer))

	other := test.NewTestRunExecution(t, "weekly-report")
	assert.NoError(t, repo.SaveRunExecution(ctx, other))

	latest, err := repo.FindLatestRunExecutionByName(ctx, "nightly-purge")
	assert.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	_, err = repo.FindLatestRunExecutionByName(ctx, "unknown-run")
	assert.True(t, errors.Is(err, repository.ErrRunExecutionNotFound))
}

func TestInMemoryExecutionRepository_CountRunExecutionsByName(t *testing.T) {
	repo := inmemory.NewInMemoryExecutionRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, repo.SaveRunExecution(ctx, test.NewTestRunExecution(t, "nightly-purge")))
	}
	assert.NoError(t, repo.SaveRunExecution(ctx, test.NewTestRunExecution(t, "weekly-report")))

	count, err := repo.CountRunExecutionsByName(ctx, "nightly-purge")
	assert.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.CountRunExecutionsByName(ctx, "unknown-run")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInMemoryExecutionRepository_ReturnsClones(t *testing.T) {
	repo := inmemory.NewInMemoryExecutionRepository()
	ctx := context.Background()

	execution := test.NewTestRunExecution(t, "nightly-purge")
	execution.Failures = model.ErrorLog{`["a"]: transport: connection refused`}
	assert.NoError(t, repo.SaveRunExecution(ctx, execution))

	found, err := repo.FindRunExecutionByID(ctx, execution.ID)
	assert.NoError(t, err)

	// Mutating the returned record must not leak into the stored one.
	found.RunName = "tampered"
	found.Failures = append(found.Failures, "tampered entry")

	again, err := repo.FindRunExecutionByID(ctx, execution.ID)
	assert.NoError(t, err)
	assert.Equal(t, "nightly-purge", again.RunName)
	assert.Len(t, again.Failures, 1)
}

func TestInMemoryExecutionRepository_ChunkExecutionLifecycle(t *testing.T) {
	repo := inmemory.NewInMemoryExecutionRepository()
	ctx := context.Background()

	runExecution := test.NewTestRunExecution(t, "nightly-purge")
	assert.NoError(t, repo.SaveRunExecution(ctx, runExecution))

	// Save out of sequence order; reads must come back ordered.
	second := test.NewTestChunkExecution(runExecution.ID, 1, "c", "d")
	first := test.NewTestChunkExecution(runExecution.ID, 0, "a", "b")
	assert.NoError(t, repo.SaveChunkExecution(ctx, second))
	assert.NoError(t, repo.SaveChunkExecution(ctx, first))

	first.RecordOutcome(model.NewSuccessOutcome())
	assert.NoError(t, repo.UpdateChunkExecution(ctx, first))

	second.RecordOutcome(model.NewFailureOutcome(model.FailureKindTransport, "transport: connection refused"))
	assert.NoError(t, repo.UpdateChunkExecution(ctx, second))

	found, err := repo.FindChunkExecutionsByRunExecutionID(ctx, runExecution.ID)
	assert.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, 0, found[0].Sequence)
	assert.True(t, found[0].Succeeded)
	assert.Equal(t, 1, found[1].Sequence)
	assert.False(t, found[1].Succeeded)
	assert.Equal(t, model.FailureKindTransport, found[1].FailureKind)

	// Chunks of other run executions are not returned.
	found, err = repo.FindChunkExecutionsByRunExecutionID(ctx, "other-exec")
	assert.NoError(t, err)
	assert.Empty(t, found)
}

func TestInMemoryExecutionRepository_UpdateChunkExecution_NotSaved(t *testing.T) {
	repo := inmemory.NewInMemoryExecutionRepository()
	chunkExecution := test.NewTestChunkExecution("exec-1", 0, "a")

	err := repo.UpdateChunkExecution(context.Background(), chunkExecution)
	assert.Error(t, err)
}
