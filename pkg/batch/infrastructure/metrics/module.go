package metrics

import (
	"go.uber.org/fx"

	metrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
)

// Module provides the PrometheusRecorder and its /metrics listener. Include
// it instead of the core metrics fallback module; providing both yields two
// MetricRecorder bindings.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(func(r *PrometheusRecorder) metrics.MetricRecorder { return r }),
	fx.Invoke(RegisterMetricsServer),
)
