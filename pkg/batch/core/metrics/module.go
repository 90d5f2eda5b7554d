package metrics

import (
	"go.uber.org/fx"
)

// RecorderModule provides the no-op MetricRecorder. Applications include it
// when neither the Prometheus nor the OpenTelemetry backend is selected; the
// backend modules bind the same interface, so exactly one recorder module
// must be included.
var RecorderModule = fx.Options(
	fx.Provide(NewNoOpMetricRecorder),
)

// TracerModule provides the no-op Tracer. Applications include it when
// telemetry is disabled.
var TracerModule = fx.Options(
	fx.Provide(NewNoOpTracer),
)

// Module provides both no-op fallbacks.
var Module = fx.Options(
	RecorderModule,
	TracerModule,
)
