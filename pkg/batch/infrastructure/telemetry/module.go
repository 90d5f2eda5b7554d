package telemetry

import (
	"go.uber.org/fx"

	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
)

// Module provides the OTLP tracer provider and the metrics.Tracer built on
// it. Include it only when telemetry is enabled; the core no-op tracer covers
// the disabled case.
var Module = fx.Options(
	fx.Provide(NewTracerProvider),
	fx.Provide(NewOpenTelemetryTracer),
	fx.Provide(func(t *OpenTelemetryTracer) metrics.Tracer { return t }),
)

// RecorderModule provides the OTLP-backed MetricRecorder for hosts that ship
// metrics to a collector instead of serving a Prometheus endpoint. It binds
// the same MetricRecorder interface as the Prometheus module; include one of
// the two.
var RecorderModule = fx.Options(
	fx.Provide(NewMeterProvider),
	fx.Provide(NewOtelMetricRecorder),
	fx.Provide(func(r *OtelMetricRecorder) metrics.MetricRecorder { return r }),
)
