package export

import (
	"go.uber.org/fx"

	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	support "github.com/tigerroll/setwave/pkg/batch/core/config/support"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// exportBuilders is a struct to receive all export component builders from Fx.
type exportBuilders struct {
	fx.In
	FailureWriterBuilder  rundef.ComponentBuilder `name:"parquetFailureWriter"`
	ReportArchiverBuilder rundef.ComponentBuilder `name:"reportArchiver"`
}

// RegisterExportBuilders registers all export component builders with the RunFactory.
func RegisterExportBuilders(rf *support.RunFactory, builders exportBuilders) {
	rf.RegisterComponentBuilder("parquetFailureWriter", builders.FailureWriterBuilder)
	rf.RegisterComponentBuilder("reportArchiver", builders.ReportArchiverBuilder)
	logger.Debugf("Export components (parquetFailureWriter, reportArchiver) were registered with RunFactory.")
}

// Module defines Fx options for the export components provided by the framework.
// The builder constructors receive the storage connection resolver from the
// application graph and close over it.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewParquetFailureWriterComponentBuilder,
		fx.ResultTags(`name:"parquetFailureWriter"`),
	)),
	fx.Provide(fx.Annotate(
		NewReportArchiverComponentBuilder,
		fx.ResultTags(`name:"reportArchiver"`),
	)),
	fx.Invoke(RegisterExportBuilders),
)
