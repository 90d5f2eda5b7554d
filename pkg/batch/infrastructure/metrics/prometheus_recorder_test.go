package metrics_test

import (
	"context"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/setwave/pkg/batch/infrastructure/metrics"
)

// gatherFamily collects the registry and returns the named metric family, or
// nil when it has no samples yet.
func gatherFamily(t *testing.T, r *metrics.PrometheusRecorder, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.GetRegistry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

// counterValue sums the named family's counters matching every given label
// pair.
func counterValue(t *testing.T, r *metrics.PrometheusRecorder, name string, labels map[string]string) float64 {
	t.Helper()
	family := gatherFamily(t, r, name)
	if family == nil {
		return 0
	}
	total := 0.0
	for _, metric := range family.GetMetric() {
		have := make(map[string]string, len(metric.GetLabel()))
		for _, label := range metric.GetLabel() {
			have[label.GetName()] = label.GetValue()
		}
		matched := true
		for key, want := range labels {
			if have[key] != want {
				matched = false
				break
			}
		}
		if matched {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func newFinishedRun(t *testing.T) *model.Run {
	t.Helper()
	run, err := model.NewRun("nightly-purge", "SELECT id FROM events", "delete(ids);", false)
	require.NoError(t, err)
	require.NoError(t, run.MarkAsStarted())
	return run
}

func TestPrometheusRecorder_RunLifecycle(t *testing.T) {
	recorder := metrics.NewPrometheusRecorder()
	run := newFinishedRun(t)

	recorder.RecordRunStart(context.Background(), run)
	run.RecordFailure(`["a"]`, "remote execution failed")
	require.NoError(t, run.MarkAsFinished())
	recorder.RecordRunEnd(context.Background(), run)

	assert.Equal(t, 1.0, counterValue(t, recorder, "batch_run_state_total",
		map[string]string{"run_name": "nightly-purge", "state": "RUNNING"}))
	assert.Equal(t, 1.0, counterValue(t, recorder, "batch_run_state_total",
		map[string]string{"run_name": "nightly-purge", "state": "FINISHED"}))
	assert.Equal(t, 1.0, counterValue(t, recorder, "batch_run_failures_total",
		map[string]string{"run_name": "nightly-purge"}))

	durations := gatherFamily(t, recorder, "batch_run_duration_seconds")
	require.NotNil(t, durations)
	require.Len(t, durations.GetMetric(), 1)
	assert.Equal(t, uint64(1), durations.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestPrometheusRecorder_ChunkOutcomes(t *testing.T) {
	recorder := metrics.NewPrometheusRecorder()
	ctx := context.Background()

	recorder.RecordChunkOutcome(ctx, "nightly-purge", 200, model.NewSuccessOutcome())
	recorder.RecordChunkOutcome(ctx, "nightly-purge", 200, model.NewSuccessOutcome())
	recorder.RecordChunkOutcome(ctx, "nightly-purge", 37,
		model.NewFailureOutcome(model.FailureKindTransport, "transport: connection refused"))

	assert.Equal(t, 2.0, counterValue(t, recorder, "batch_chunk_outcome_total",
		map[string]string{"run_name": "nightly-purge", "outcome": "success"}))
	assert.Equal(t, 1.0, counterValue(t, recorder, "batch_chunk_outcome_total",
		map[string]string{"run_name": "nightly-purge", "outcome": "TRANSPORT_FAILURE"}))
	assert.Equal(t, 400.0, counterValue(t, recorder, "batch_chunk_records_total",
		map[string]string{"run_name": "nightly-purge", "outcome": "success"}))
	assert.Equal(t, 37.0, counterValue(t, recorder, "batch_chunk_records_total",
		map[string]string{"run_name": "nightly-purge", "outcome": "TRANSPORT_FAILURE"}))
}

func TestPrometheusRecorder_Notifications(t *testing.T) {
	recorder := metrics.NewPrometheusRecorder()
	ctx := context.Background()

	recorder.RecordNotification(ctx, "nightly-purge", true)
	recorder.RecordNotification(ctx, "nightly-purge", true)
	recorder.RecordNotification(ctx, "nightly-purge", false)

	assert.Equal(t, 2.0, counterValue(t, recorder, "batch_notification_total",
		map[string]string{"run_name": "nightly-purge", "delivered": "true"}))
	assert.Equal(t, 1.0, counterValue(t, recorder, "batch_notification_total",
		map[string]string{"run_name": "nightly-purge", "delivered": "false"}))
}

func TestPrometheusRecorder_OperationDuration(t *testing.T) {
	recorder := metrics.NewPrometheusRecorder()

	recorder.RecordDuration(context.Background(), "remote_execute", 1500*time.Millisecond,
		map[string]string{"run": "nightly-purge"})

	family := gatherFamily(t, recorder, "batch_operation_duration_seconds")
	require.NotNil(t, family)
	require.Len(t, family.GetMetric(), 1)
	histogram := family.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), histogram.GetSampleCount())
	assert.InDelta(t, 1.5, histogram.GetSampleSum(), 0.0001)
}
