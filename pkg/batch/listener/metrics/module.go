package metrics

import (
	"go.uber.org/fx"
)

// Module provides the metrics listeners and decorates the MetricRecorder with
// the asynchronous wrapper so listener callbacks never block on a slow
// metrics backend.
var Module = fx.Options(
	// fx.Decorate replaces the bound MetricRecorder (Prometheus or
	// OpenTelemetry) with the asynchronous wrapper.
	fx.Decorate(NewAsyncMetricRecorderWrapper),

	// Run Listener
	fx.Provide(fx.Annotate(NewMetricsRunListener, fx.ResultTags(`group:"runListeners"`))),
	// Chunk Listener
	fx.Provide(fx.Annotate(NewMetricsChunkListener, fx.ResultTags(`group:"chunkListeners"`))),
)
