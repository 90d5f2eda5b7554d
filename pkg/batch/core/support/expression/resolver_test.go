package expression_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/core/support/expression"
)

func newResolverTestRun(t *testing.T) *model.Run {
	t.Helper()
	run, err := model.NewRun("nightly-purge", "SELECT id FROM events", "delete SOMETHING;", false)
	require.NoError(t, err)
	return run
}

// TestResolve_PassThrough verifies that strings without expressions are
// returned unchanged.
func TestResolve_PassThrough(t *testing.T) {
	resolver := expression.NewDefaultExpressionResolver()

	resolved, err := resolver.Resolve(context.Background(), "exports/failures.parquet", nil)
	require.NoError(t, err)
	assert.Equal(t, "exports/failures.parquet", resolved)
}

// TestResolve_RunAttributes verifies resolution of run.<attribute> expressions.
func TestResolve_RunAttributes(t *testing.T) {
	resolver := expression.NewDefaultExpressionResolver()
	run := newResolverTestRun(t)
	run.Errors.Record(`["a"]`, "transport: connection refused")

	resolved, err := resolver.Resolve(context.Background(), "exports/#{run.name}/failures-#{run.failureCount}.parquet", run)
	require.NoError(t, err)
	assert.Equal(t, "exports/nightly-purge/failures-1.parquet", resolved)

	resolved, err = resolver.Resolve(context.Background(), "#{run.id}", run)
	require.NoError(t, err)
	assert.Equal(t, run.ID, resolved)

	resolved, err = resolver.Resolve(context.Background(), "#{run.state}", run)
	require.NoError(t, err)
	assert.Equal(t, "NOT_STARTED", resolved)
}

// TestResolve_Timestamp verifies the timestamp['layout'] expression.
func TestResolve_Timestamp(t *testing.T) {
	resolver := expression.NewDefaultExpressionResolver()

	resolved, err := resolver.Resolve(context.Background(), "reports/#{timestamp['2006']}.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "reports/"+time.Now().UTC().Format("2006")+".txt", resolved)
}

// TestResolve_UnknownExpression verifies that unresolvable expressions are
// left in place rather than dropped.
func TestResolve_UnknownExpression(t *testing.T) {
	resolver := expression.NewDefaultExpressionResolver()
	run := newResolverTestRun(t)

	resolved, err := resolver.Resolve(context.Background(), "#{run.unknownAttribute}", run)
	require.NoError(t, err)
	assert.Equal(t, "#{run.unknownAttribute}", resolved)

	// A run attribute without a run in scope also stays in place.
	resolved, err = resolver.Resolve(context.Background(), "#{run.name}", nil)
	require.NoError(t, err)
	assert.Equal(t, "#{run.name}", resolved)
}
