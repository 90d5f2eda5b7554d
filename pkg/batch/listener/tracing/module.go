package tracing

import (
	"go.uber.org/fx"
)

// Module provides the tracing listeners into the run and chunk listener
// groups. The concrete Tracer binding comes from the infrastructure layer
// (pkg/batch/infrastructure/telemetry) or the core no-op fallback.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewTracingRunListener, fx.ResultTags(`group:"runListeners"`))),
	fx.Provide(fx.Annotate(NewTracingChunkListener, fx.ResultTags(`group:"chunkListeners"`))),
)
