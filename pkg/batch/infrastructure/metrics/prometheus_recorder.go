// Package metrics exposes run and chunk metrics through Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// chunkOutcomeLabel maps an outcome to its metric label value. Successful
// chunks share one label; failed chunks are labeled by failure kind.
func chunkOutcomeLabel(outcome model.RemoteOutcome) string {
	if outcome.Succeeded {
		return "success"
	}
	return outcome.FailureKind.String()
}

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Run metrics
	runDurationSeconds *prometheus.HistogramVec
	runStateCounter    *prometheus.CounterVec
	runFailureCounter  *prometheus.CounterVec

	// Chunk metrics
	chunkOutcomeCounter *prometheus.CounterVec
	chunkRecordCounter  *prometheus.CounterVec

	// Delivery metrics
	notificationCounter *prometheus.CounterVec

	// Generic operation timings
	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_run_duration_seconds",
			Help:    "Duration of finished runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"run_name"}),
		runStateCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_run_state_total",
			Help: "Total run state transitions observed.",
		}, []string{"run_name", "state"}),
		runFailureCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_run_failures_total",
			Help: "Total failure log entries accumulated by finished runs.",
		}, []string{"run_name"}),
		chunkOutcomeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_chunk_outcome_total",
			Help: "Total chunk submissions by classified outcome.",
		}, []string{"run_name", "outcome"}),
		chunkRecordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_chunk_records_total",
			Help: "Total record identifiers submitted, by chunk outcome.",
		}, []string{"run_name", "outcome"}),
		notificationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_notification_total",
			Help: "Total completion report delivery attempts.",
		}, []string{"run_name", "delivered"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_operation_duration_seconds",
			Help:    "Duration of named internal operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	// Register all metrics with the registry.
	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.runStateCounter)
	registry.MustRegister(r.runFailureCounter)
	registry.MustRegister(r.chunkOutcomeCounter)
	registry.MustRegister(r.chunkRecordCounter)
	registry.MustRegister(r.notificationCounter)
	registry.MustRegister(r.operationDurationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordRunStart records the start of a Run.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, run *model.Run) {
	r.runStateCounter.WithLabelValues(run.Name, run.State.String()).Inc()
	logger.Debugf("Metrics: Run '%s' started.", run.Name)
}

// RecordRunEnd records the end of a Run, its duration and its final failure
// count.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, run *model.Run) {
	r.runStateCounter.WithLabelValues(run.Name, run.State.String()).Inc()
	r.runFailureCounter.WithLabelValues(run.Name).Add(float64(run.FailureCount()))

	if run.StartTime == nil || run.EndTime == nil {
		return
	}
	duration := run.EndTime.Sub(*run.StartTime).Seconds()
	r.runDurationSeconds.WithLabelValues(run.Name).Observe(duration)

	logger.Debugf("Metrics: Run '%s' ended. Duration: %.3fs, Failures: %d", run.Name, duration, run.FailureCount())
}

// RecordChunkOutcome records the classified outcome of one chunk submission.
func (r *PrometheusRecorder) RecordChunkOutcome(ctx context.Context, runName string, recordCount int, outcome model.RemoteOutcome) {
	label := chunkOutcomeLabel(outcome)
	r.chunkOutcomeCounter.WithLabelValues(runName, label).Inc()
	r.chunkRecordCounter.WithLabelValues(runName, label).Add(float64(recordCount))
}

// RecordNotification records one completion report delivery attempt.
func (r *PrometheusRecorder) RecordNotification(ctx context.Context, runName string, delivered bool) {
	deliveredLabel := "false"
	if delivered {
		deliveredLabel = "true"
	}
	r.notificationCounter.WithLabelValues(runName, deliveredLabel).Inc()
}

// RecordDuration records the execution time of a named operation. Tag keys
// are unbounded, so only the operation name becomes a label.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
