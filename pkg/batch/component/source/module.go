package source

import (
	"go.uber.org/fx"

	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	support "github.com/tigerroll/setwave/pkg/batch/core/config/support"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// sourceBuilders is a struct to receive all record source builders from Fx.
type sourceBuilders struct {
	fx.In
	StaticBuilder rundef.ComponentBuilder `name:"staticSource"`
	FileBuilder   rundef.ComponentBuilder `name:"fileSource"`
	SQLBuilder    rundef.ComponentBuilder `name:"sqlSource"`
}

// RegisterSourceBuilders registers the record source builders with the RunFactory.
func RegisterSourceBuilders(rf *support.RunFactory, builders sourceBuilders) {
	rf.RegisterComponentBuilder("staticSource", builders.StaticBuilder)
	rf.RegisterComponentBuilder("fileSource", builders.FileBuilder)
	rf.RegisterComponentBuilder("sqlSource", builders.SQLBuilder)
	logger.Debugf("Record source components (staticSource, fileSource, sqlSource) were registered with RunFactory.")
}

// Module defines Fx options for the record source components provided by the framework.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewStaticSourceComponentBuilder,
		fx.ResultTags(`name:"staticSource"`),
	)),
	fx.Provide(fx.Annotate(
		NewFileSourceComponentBuilder,
		fx.ResultTags(`name:"fileSource"`),
	)),
	fx.Provide(fx.Annotate(
		NewSQLSourceComponentBuilder,
		fx.ResultTags(`name:"sqlSource"`),
	)),
	fx.Invoke(RegisterSourceBuilders),
)
