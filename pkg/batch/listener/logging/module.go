package logging

import (
	"go.uber.org/fx"
)

// Module provides the logging listeners into the run and chunk listener
// groups. The orchestrator receives every member of each group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewLoggingRunListener, fx.ResultTags(`group:"runListeners"`))),
	fx.Provide(fx.Annotate(NewLoggingChunkListener, fx.ResultTags(`group:"chunkListeners"`))),
)
