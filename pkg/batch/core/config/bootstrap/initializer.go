package bootstrap

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/core/config"
	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// BatchInitializer is responsible for initializing batch components, such as loading run definitions.
type BatchInitializer struct {
	defBytes rundef.RunDefinitionBytes
	expander config.EnvironmentExpander
}

// BatchInitializerParams defines the dependencies for NewBatchInitializer.
type BatchInitializerParams struct {
	fx.In
	DefBytes rundef.RunDefinitionBytes
	// Expander resolves ${VAR} placeholders in the run definition before it
	// is parsed. Without one the definition is loaded verbatim.
	Expander config.EnvironmentExpander `optional:"true"`
}

// NewBatchInitializer creates a new instance of BatchInitializer.
func NewBatchInitializer(p BatchInitializerParams) *BatchInitializer {
	return &BatchInitializer{
		defBytes: p.DefBytes,
		expander: p.Expander,
	}
}

// GetRunDefinitionBytes returns the run definition byte slice with environment
// placeholders expanded.
func (i *BatchInitializer) GetRunDefinitionBytes() (rundef.RunDefinitionBytes, error) {
	if i.expander == nil {
		return i.defBytes, nil
	}
	expanded, err := i.expander.Expand(i.defBytes)
	if err != nil {
		return nil, exception.NewBatchError("bootstrap", "failed to expand environment placeholders in run definition", err, false, false)
	}
	return expanded, nil
}

// ApplyLoggingConfigHook applies the logging level based on the configuration.
func ApplyLoggingConfigHook(cfg *config.Config) {
	if cfg.Setwave.System.Logging.Level != "" {
		logger.SetLogLevel(cfg.Setwave.System.Logging.Level)
		logger.Infof("Log level set to: %s", cfg.Setwave.System.Logging.Level)
	}
}

// LoadRunDefinitionsHook registers an Fx lifecycle hook to load run definitions.
// Defined as a named function for use with fx.Invoke.
func LoadRunDefinitionsHook(lc fx.Lifecycle, initializer *BatchInitializer) {
	lc.Append(fx.Hook{
		OnStart: onStartLoadRunDefinitions(initializer),
	})
}

// onStartLoadRunDefinitions is a helper function for the OnStart hook that loads run definitions.
func onStartLoadRunDefinitions(initializer *BatchInitializer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Infof("Loading run definitions.")
		data, err := initializer.GetRunDefinitionBytes()
		if err != nil {
			return err
		}
		return rundef.LoadRunDefinitionFromBytes(data)
	}
}
