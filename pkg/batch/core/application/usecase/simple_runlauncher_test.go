package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usecase "github.com/tigerroll/setwave/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	support "github.com/tigerroll/setwave/pkg/batch/core/config/support"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/core/support/expression"
	"github.com/tigerroll/setwave/pkg/batch/component/source"
	"github.com/tigerroll/setwave/pkg/batch/infrastructure/repository/inmemory"
)

const launcherDefinition = `
id: purge-obsolete
name: purge-obsolete
description: removes obsolete records in bulk
query: static
source:
  ref: staticSource
  properties:
    ids: "rec-1,rec-2,rec-3"
template:
  inline: "records.remove(ids)"
chunk_size: 2
`

// scriptedExecutor records every submitted script and replays configured
// outcomes in order, defaulting to success once they run out.
type scriptedExecutor struct {
	scripts  []string
	outcomes []model.RemoteOutcome
}

func (e *scriptedExecutor) Execute(_ context.Context, script string) model.RemoteOutcome {
	e.scripts = append(e.scripts, script)
	if len(e.outcomes) == 0 {
		return model.NewSuccessOutcome()
	}
	outcome := e.outcomes[0]
	e.outcomes = e.outcomes[1:]
	return outcome
}

func loadLauncherDefinition(t *testing.T) {
	t.Helper()
	rundef.ClearLoadedRunDefinitions()
	t.Cleanup(rundef.ClearLoadedRunDefinitions)
	require.NoError(t, rundef.LoadRunDefinitionFromBytes([]byte(launcherDefinition)))
}

func newLauncher(t *testing.T, executor *scriptedExecutor, repo *inmemory.InMemoryExecutionRepository) *usecase.SimpleRunLauncher {
	t.Helper()

	cfg := config.NewConfig()
	factory := support.NewRunFactory(support.RunFactoryParams{
		Cfg:      cfg,
		Resolver: expression.NewDefaultExpressionResolver(),
	})
	factory.RegisterComponentBuilder("staticSource", source.NewStaticSourceComponentBuilder())

	return usecase.NewSimpleRunLauncher(usecase.SimpleRunLauncherParams{
		Factory:  factory,
		Cfg:      cfg,
		Executor: executor,
		Repo:     repo,
	})
}

func TestSimpleRunLauncher_DrivesRunToCompletion(t *testing.T) {
	loadLauncherDefinition(t)

	executor := &scriptedExecutor{}
	repo := inmemory.NewInMemoryExecutionRepository()
	launcher := newLauncher(t, executor, repo)

	report, err := launcher.Launch(context.Background(), "purge-obsolete")
	require.NoError(t, err)

	assert.Equal(t, "purge-obsolete", report.RunName)
	assert.Zero(t, report.FailureCount)
	assert.Contains(t, report.Subject, "no errors")

	// Three identifiers with chunk_size 2 submit two scripts.
	require.Len(t, executor.scripts, 2)
	assert.True(t, strings.HasPrefix(executor.scripts[0], `ids = ["rec-1","rec-2"];`), "script %q", executor.scripts[0])
	assert.True(t, strings.HasPrefix(executor.scripts[1], `ids = ["rec-3"];`), "script %q", executor.scripts[1])

	execution, err := repo.FindLatestRunExecutionByName(context.Background(), "purge-obsolete")
	require.NoError(t, err)
	assert.Equal(t, model.RunStateFinished, execution.State)
	assert.Equal(t, 2, execution.ChunkCount)
	assert.Zero(t, execution.FailureCount)

	chunks, err := repo.FindChunkExecutionsByRunExecutionID(context.Background(), execution.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.True(t, chunks[0].Succeeded)
	assert.True(t, chunks[1].Succeeded)
}

func TestSimpleRunLauncher_FoldsChunkFailuresIntoReport(t *testing.T) {
	loadLauncherDefinition(t)

	executor := &scriptedExecutor{
		outcomes: []model.RemoteOutcome{
			model.NewFailureOutcome(model.FailureKindRemoteRuntime, "index out of range"),
		},
	}
	repo := inmemory.NewInMemoryExecutionRepository()
	launcher := newLauncher(t, executor, repo)

	report, err := launcher.Launch(context.Background(), "purge-obsolete")
	require.NoError(t, err, "chunk failures must not surface as launch errors")

	assert.Equal(t, 1, report.FailureCount)
	assert.Contains(t, report.Body, `["rec-1","rec-2"]: index out of range`)

	execution, err := repo.FindLatestRunExecutionByName(context.Background(), "purge-obsolete")
	require.NoError(t, err)
	assert.Equal(t, model.RunStateFinished, execution.State)
	assert.Equal(t, 1, execution.FailureCount)
}

func TestSimpleRunLauncher_UnknownDefinition(t *testing.T) {
	loadLauncherDefinition(t)

	launcher := newLauncher(t, &scriptedExecutor{}, inmemory.NewInMemoryExecutionRepository())

	_, err := launcher.Launch(context.Background(), "no-such-definition")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-definition")
}

func TestSimpleRunLauncher_EmptyIDSelectsDefaultDefinition(t *testing.T) {
	loadLauncherDefinition(t)

	executor := &scriptedExecutor{}
	launcher := newLauncher(t, executor, inmemory.NewInMemoryExecutionRepository())

	report, err := launcher.Launch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "purge-obsolete", report.RunName)
}
