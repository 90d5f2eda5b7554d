package main

import (
	"context"
	"embed"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/setwave/example/purge/internal/app"
	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"

	"go.uber.org/fx"
)

// embeddedConfig embeds the content of the application's YAML configuration file.
// This file is used to load configuration at application startup.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// embeddedRunDefinition embeds the run definition describing the purge run.
//
//go:embed resources/run.yaml
var embeddedRunDefinition []byte

// journalMigrationsFS is an embedded file system containing the execution
// journal schema migrations, bundled into the application binary.
//
//go:embed all:resources/migrations
var journalMigrationsFS embed.FS

// getDBProviderOptions selects the DB providers to register based on the
// "DB_ADAPTORS" environment variable (comma-separated). When unset, Postgres,
// MySQL, and SQLite are all registered.
//
// Returns:
//
//	A list of fx.Option to provide to the Fx application.
func getDBProviderOptions() []fx.Option {
	adapters := os.Getenv("DB_ADAPTORS")
	if adapters == "" {
		adapters = "postgres,mysql,sqlite"
	}

	options := make([]fx.Option, 0)
	for _, adapterName := range strings.Split(adapters, ",") {
		adapterName = strings.TrimSpace(adapterName)
		if adapterName == "" {
			continue
		}

		if provider, ok := app.DBProviderMap[adapterName]; ok {
			// provider is of type func(cfg *config.Config) database.DBProvider
			options = append(options, fx.Provide(fx.Annotate(provider, fx.ResultTags(database.DBProviderGroup))))
			logger.Debugf("DB provider '%s' selected and registered.", adapterName)
		} else {
			logger.Warnf("DB provider '%s' is configured but not recognized/supported. Skipping.", adapterName)
		}
	}
	return options
}

// main is the entry point of the application.
// It manages startup, signal handling, and execution of the Fx container.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the run...", sig)
		cancel()
	}()

	// Get the path to the .env file from environment variables. Use ".env" as default if not set.
	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	// Provide selected DB providers to Fx
	dbProviderOptions := getDBProviderOptions()

	// Run the application
	app.RunApplication(ctx, envFilePath, embeddedConfig, embeddedRunDefinition, journalMigrationsFS, dbProviderOptions)
	os.Exit(0)
}
