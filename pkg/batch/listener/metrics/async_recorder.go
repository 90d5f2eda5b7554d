package metrics

import (
	"context"
	"sync"
	"time"

	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/core/metrics"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"

	"go.uber.org/fx"
)

// MetricEvent represents a metric event to be recorded asynchronously.
type MetricEvent struct {
	Type        string
	Run         *model.Run // Used for run lifecycle events
	RunName     string
	RecordCount int
	Outcome     model.RemoteOutcome
	Delivered   bool
	Name        string // For duration metrics
	Duration    time.Duration
	Tags        map[string]string
}

// Metric event type constants
const (
	MetricEventTypeRunStart       = "run_start"
	MetricEventTypeRunEnd         = "run_end"
	MetricEventTypeChunkOutcome   = "chunk_outcome"
	MetricEventTypeNotification   = "notification"
	MetricEventTypeRecordDuration = "record_duration"
)

// AsyncMetricRecorder asynchronously records metrics by pushing events to a
// channel and processing them in a separate goroutine. A full queue discards
// the event instead of blocking the run.
type AsyncMetricRecorder struct {
	eventQueue   chan MetricEvent
	stopCh       chan struct{}
	wg           sync.WaitGroup
	syncRecorder metrics.MetricRecorder // The concrete instance that performs actual metric recording
}

// NewAsyncMetricRecorder creates a new asynchronous metric recorder.
// bufferSize: The buffer size for the event queue. If 0 or less, a default value is used.
// syncRec: The synchronous recorder that performs the actual metric recording.
func NewAsyncMetricRecorder(bufferSize int, syncRec metrics.MetricRecorder) *AsyncMetricRecorder {
	if bufferSize <= 0 {
		bufferSize = 100 // Default buffer size
	}
	r := &AsyncMetricRecorder{
		eventQueue:   make(chan MetricEvent, bufferSize),
		stopCh:       make(chan struct{}),
		syncRecorder: syncRec,
	}
	r.wg.Add(1)
	go r.run() // Start the worker goroutine
	logger.Debugf("AsyncMetricRecorder: Worker goroutine started (buffer size: %d).", bufferSize)
	return r
}

// run is the worker goroutine that reads events from the event queue and processes them with the synchronous recorder.
func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.eventQueue:
			r.processEvent(event)
		case <-r.stopCh:
			// Upon receiving a stop signal, process all remaining events in the queue before exiting.
			remainingEvents := len(r.eventQueue)
			for i := 0; i < remainingEvents; i++ {
				event := <-r.eventQueue
				r.processEvent(event)
			}
			logger.Debugf("AsyncMetricRecorder: Worker goroutine stopped. Processed %d remaining events.", remainingEvents)
			return
		}
	}
}

// processEvent processes the received metric event.
func (r *AsyncMetricRecorder) processEvent(event MetricEvent) {
	// A new background context is used here because the event payload does not
	// carry the original context.
	ctx := context.Background()
	switch event.Type {
	case MetricEventTypeRunStart:
		r.syncRecorder.RecordRunStart(ctx, event.Run)
	case MetricEventTypeRunEnd:
		r.syncRecorder.RecordRunEnd(ctx, event.Run)
	case MetricEventTypeChunkOutcome:
		r.syncRecorder.RecordChunkOutcome(ctx, event.RunName, event.RecordCount, event.Outcome)
	case MetricEventTypeNotification:
		r.syncRecorder.RecordNotification(ctx, event.RunName, event.Delivered)
	case MetricEventTypeRecordDuration:
		r.syncRecorder.RecordDuration(ctx, event.Name, event.Duration, event.Tags)
	default:
		logger.Warnf("AsyncMetricRecorder: Unknown metric event type: %s", event.Type)
	}
}

// Close gracefully stops the recorder and processes all remaining events in the queue.
func (r *AsyncMetricRecorder) Close() {
	logger.Debugf("AsyncMetricRecorder: Sending shutdown signal...")
	close(r.stopCh) // Send stop signal
	r.wg.Wait()     // Wait for the worker goroutine to finish
	logger.Debugf("AsyncMetricRecorder: Shutdown complete.")
}

// sendEvent sends an event to the queue, logging a warning if the queue is full.
func (r *AsyncMetricRecorder) sendEvent(event MetricEvent, id string) {
	select {
	case r.eventQueue <- event:
		// Event added to queue
	default:
		logger.Warnf("AsyncMetricRecorder: Event queue is full (type: %s, ID: %s). Event discarded.", event.Type, id)
	}
}

// RecordRunStart asynchronously records the start event of a Run.
func (r *AsyncMetricRecorder) RecordRunStart(ctx context.Context, run *model.Run) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRunStart, Run: run}, run.ID)
}

// RecordRunEnd asynchronously records the end event of a Run.
func (r *AsyncMetricRecorder) RecordRunEnd(ctx context.Context, run *model.Run) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRunEnd, Run: run}, run.ID)
}

// RecordChunkOutcome asynchronously records one chunk outcome.
func (r *AsyncMetricRecorder) RecordChunkOutcome(ctx context.Context, runName string, recordCount int, outcome model.RemoteOutcome) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeChunkOutcome, RunName: runName, RecordCount: recordCount, Outcome: outcome}, runName)
}

// RecordNotification asynchronously records one report delivery attempt.
func (r *AsyncMetricRecorder) RecordNotification(ctx context.Context, runName string, delivered bool) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeNotification, RunName: runName, Delivered: delivered}, runName)
}

// RecordDuration asynchronously records the execution time event of a specific operation.
func (r *AsyncMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRecordDuration, Name: name, Duration: duration, Tags: tags}, name)
}

// Ensures AsyncMetricRecorder implements the metrics.MetricRecorder interface at compile time.
var _ metrics.MetricRecorder = (*AsyncMetricRecorder)(nil)

// NewAsyncMetricRecorderWrapper is a helper function for use with fx.Decorate.
// It takes fx.Lifecycle and config.Config and calls AsyncMetricRecorder.Close() on shutdown.
func NewAsyncMetricRecorderWrapper(lc fx.Lifecycle, cfg *config.Config, syncRecorder metrics.MetricRecorder) metrics.MetricRecorder {
	// If MetricsAsyncBufferSize is not set or is 0 or less, use the default of 100.
	bufferSize := cfg.Setwave.Batch.MetricsAsyncBufferSize
	if bufferSize <= 0 {
		bufferSize = 100
	}
	asyncRecorder := NewAsyncMetricRecorder(bufferSize, syncRecorder)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			asyncRecorder.Close()
			return nil
		},
	})
	logger.Debugf("MetricRecorder decorated with asynchronous wrapper.")
	return asyncRecorder
}
