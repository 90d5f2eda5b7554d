package app

import (
	"context"
	"embed"
	"os"

	"go.uber.org/fx"

	storage "github.com/tigerroll/setwave/pkg/batch/adapter/storage"
	gcs "github.com/tigerroll/setwave/pkg/batch/adapter/storage/gcs"
	local "github.com/tigerroll/setwave/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/setwave/pkg/batch/component/export"
	"github.com/tigerroll/setwave/pkg/batch/component/migration"
	"github.com/tigerroll/setwave/pkg/batch/component/source"
	usecase "github.com/tigerroll/setwave/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	"github.com/tigerroll/setwave/pkg/batch/core/config/bootstrap"
	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	supportConfig "github.com/tigerroll/setwave/pkg/batch/core/config/support"
	coreMetrics "github.com/tigerroll/setwave/pkg/batch/core/metrics"
	infraMetrics "github.com/tigerroll/setwave/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/setwave/pkg/batch/infrastructure/remote"
	"github.com/tigerroll/setwave/pkg/batch/infrastructure/telemetry"
	batchlistener "github.com/tigerroll/setwave/pkg/batch/listener"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// RunApplication sets up and runs the purge batch application using uber-fx.
// It blocks until the run finishes or the application context is cancelled.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, embeddedRunDef rundef.RunDefinitionBytes, journalMigrationsFS embed.FS, dbProviderOptions []fx.Option) {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level based on loaded configuration
	logger.SetLogLevel(cfg.Setwave.System.Logging.Level)

	// An external run definition file overrides the embedded one.
	if path := cfg.Setwave.Batch.RunDefinitionPath; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatalf("Failed to read run definition file '%s': %v", path, err)
		}
		embeddedRunDef = data
		logger.Infof("Using external run definition file '%s'.", path)
	}

	app := fx.New(
		fx.Supply(
			cfg,
			embeddedRunDef,
			fx.Annotate(
				journalMigrationsFS,
				fx.ResultTags(`name:"rawJournalMigrationsFS"`),
			),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),

		fx.Options(dbProviderOptions...),
		fx.Options(observabilityOptions(cfg)...),

		logger.Module,
		config.Module,
		bootstrap.Module,
		migration.Module,

		remote.Module,
		batchlistener.Module,

		storage.Module,
		local.Module,
		gcs.Module,
		source.Module,
		export.Module,

		supportConfig.Module,
		usecase.Module,

		Module,

		// Start the main application logic
		fx.Invoke(fx.Annotate(startRunExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // launcher *usecase.SimpleRunLauncher (concrete type)
			"",              // cfg *config.Config
			`name:"appCtx"`, // appCtx context.Context
		))),
	)

	// Execute the application
	app.Run()

	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}

// observabilityOptions selects the metric recorder and tracer backends from
// the configuration. Exactly one binding of each interface may exist in the
// graph, so the choice happens here, before the graph is built.
func observabilityOptions(cfg *config.Config) []fx.Option {
	opts := make([]fx.Option, 0, 2)

	switch {
	case cfg.Setwave.Metrics.Enabled:
		opts = append(opts, infraMetrics.Module)
	case cfg.Setwave.Telemetry.Enabled:
		opts = append(opts, telemetry.RecorderModule)
	default:
		opts = append(opts, coreMetrics.RecorderModule)
	}

	if cfg.Setwave.Telemetry.Enabled {
		opts = append(opts, telemetry.Module)
	} else {
		opts = append(opts, coreMetrics.TracerModule)
	}

	return opts
}

// startRunExecution is invoked by Fx to begin the run once the graph is started.
func startRunExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	launcher *usecase.SimpleRunLauncher,
	cfg *config.Config,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: onStartRunExecution(launcher, cfg, shutdowner, appCtx),
		OnStop:  onStopApplication(),
	})
}

// onStartRunExecution is an Fx Hook helper that launches the configured run in
// a goroutine and requests application shutdown when it returns. Launch blocks
// until the run finalizes, so no status polling is needed; cancellation of the
// application context stops the run between chunks.
func onStartRunExecution(
	launcher *usecase.SimpleRunLauncher,
	cfg *config.Config,
	shutdowner fx.Shutdowner,
	appCtx context.Context,
) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic recovered in run execution: %v", r)
				}
				logger.Infof("Requesting application shutdown after run completion.")

				if err := shutdowner.Shutdown(); err != nil {
					logger.Errorf("Failed to shutdown application: %v", err)
				}
			}()

			runID := cfg.Setwave.Batch.RunName
			report, err := launcher.Launch(appCtx, runID)
			if err != nil {
				logger.Errorf("Run execution failed: %v", err)
				return
			}
			logger.Infof("%s", report.Subject)
		}()
		return nil
	}
}

// onStopApplication is an Fx Hook helper that logs application shutdown.
func onStopApplication() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Infof("Application is shutting down.")
		return nil
	}
}
