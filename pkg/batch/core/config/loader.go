package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"

	"go.uber.org/fx"
)

// Package config provides utilities for loading and managing application configuration
// from various sources, including YAML files and environment variables.

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string         `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
}

// loadConfig loads configuration from a file and environment variables.
// This function is intended to be called only once during application startup.
//
// Parameters:
//
//	envFilePath: The path to the .env file.
//	embeddedConfig: The embedded configuration bytes.
//
// Returns:
//
//	A pointer to the loaded Config and an error if loading fails.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	// Expand ${VAR} placeholders against the process environment. This runs
	// after godotenv so .env entries participate in the expansion.
	expanded, err := NewOsEnvironmentExpander().Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders in embedded config", err, false, false)
	}

	// 1. Load defaults from NewConfig()
	cfg := NewConfig()

	// 2. Load configuration from embedded YAML into a temporary Config struct.
	// This ensures that YAML values are correctly parsed into their respective types.
	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	// 3. Merge YAML configuration into the default configuration.
	mergeConfig(cfg, &yamlConfig)

	// 4. Override with environment variables
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It initializes the application configuration by loading defaults,
// merging from embedded YAML, and overriding with environment variables.
// It also sets the global logger level.
//
// Parameters:
//
//	params: ConfigParams containing dependencies like embedded config and env file path.
//
// Returns:
//
//	A pointer to the initialized Config and an error if configuration loading fails.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load application configuration", err, false, false)
	}

	// Set global configuration
	GlobalConfig = cfg

	// Set log level
	logger.SetLogLevel(cfg.Setwave.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Setwave.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from configuration files and environment variables.
// This function is expected to be called only once during application startup.
//
// Parameters:
//
//	envFilePath: The path to the .env file.
//	embeddedConfig: The embedded configuration bytes.
//
// Returns:
//
//	A pointer to the loaded Config and an error if loading fails.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig will overwrite corresponding values in destConfig
// if they are not zero/empty values for their type.
//
// Parameters:
//
//	destConfig: The destination Config to merge into.
//	sourceConfig: The source Config to merge from.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeSetwaveConfig(&destConfig.Setwave, &sourceConfig.Setwave)
}

// mergeSetwaveConfig merges source into dest.
//
// Parameters:
//
//	dest: The destination SetwaveConfig to merge into.
//	source: The source SetwaveConfig to merge from.
func mergeSetwaveConfig(dest, source *SetwaveConfig) {
	// Merge BatchConfig
	if source.Batch.RunName != "" {
		dest.Batch.RunName = source.Batch.RunName
	}
	if source.Batch.RunDefinitionPath != "" {
		dest.Batch.RunDefinitionPath = source.Batch.RunDefinitionPath
	}
	if source.Batch.ChunkSize != 0 {
		dest.Batch.ChunkSize = source.Batch.ChunkSize
	}
	if source.Batch.MetricsAsyncBufferSize != 0 {
		dest.Batch.MetricsAsyncBufferSize = source.Batch.MetricsAsyncBufferSize
	}

	// Merge RemoteConfig
	mergeRemoteConfig(&dest.Remote, &source.Remote)

	// Merge NotificationConfig
	mergeNotificationConfig(&dest.Notification, &source.Notification)

	// Merge MetricsConfig
	mergeMetricsConfig(&dest.Metrics, &source.Metrics)

	// Merge TelemetryConfig
	mergeTelemetryConfig(&dest.Telemetry, &source.Telemetry)

	// Merge SystemConfig
	mergeSystemConfig(&dest.System, &source.System)

	// Merge InfrastructureConfig
	if source.Infrastructure.RunRepositoryDBRef != "" {
		dest.Infrastructure.RunRepositoryDBRef = source.Infrastructure.RunRepositoryDBRef
	}
	if source.Infrastructure.Migration.Enabled {
		dest.Infrastructure.Migration.Enabled = true
	}
	if source.Infrastructure.Migration.DBRef != "" {
		dest.Infrastructure.Migration.DBRef = source.Infrastructure.Migration.DBRef
	}
	if source.Infrastructure.Migration.FSName != "" {
		dest.Infrastructure.Migration.FSName = source.Infrastructure.Migration.FSName
	}
	if source.Infrastructure.Migration.Dir != "" {
		dest.Infrastructure.Migration.Dir = source.Infrastructure.Migration.Dir
	}

	// Merge SecurityConfig
	if source.Security.MaskedParameterKeys != nil {
		dest.Security.MaskedParameterKeys = source.Security.MaskedParameterKeys
	}

	// Merge AdapterConfigs (this is the critical part for database configs)
	if source.AdapterConfigs != nil {
		if dest.AdapterConfigs == nil {
			dest.AdapterConfigs = make(map[string]interface{})
		}
		for key, value := range source.AdapterConfigs {
			dest.AdapterConfigs[key] = value
		}
	}

	// Merge StorageConfigs the same way.
	if source.StorageConfigs != nil {
		if dest.StorageConfigs == nil {
			dest.StorageConfigs = make(map[string]interface{})
		}
		for key, value := range source.StorageConfigs {
			dest.StorageConfigs[key] = value
		}
	}
}

// mergeRemoteConfig merges source into dest.
//
// Parameters:
//
//	dest: The destination RemoteConfig to merge into.
//	source: The source RemoteConfig to merge from.
func mergeRemoteConfig(dest, source *RemoteConfig) {
	// Only overwrite if source value is not zero/empty
	if source.Endpoint != "" { dest.Endpoint = source.Endpoint }
	if source.SessionToken != "" { dest.SessionToken = source.SessionToken }
	if source.TimeoutSeconds != 0 { dest.TimeoutSeconds = source.TimeoutSeconds }
}

// mergeNotificationConfig merges source into dest.
//
// Parameters:
//
//	dest: The destination NotificationConfig to merge into.
//	source: The source NotificationConfig to merge from.
func mergeNotificationConfig(dest, source *NotificationConfig) {
	if source.Kind != "" { dest.Kind = source.Kind }
	if source.WebhookURL != "" { dest.WebhookURL = source.WebhookURL }
	if source.TimeoutSeconds != 0 { dest.TimeoutSeconds = source.TimeoutSeconds }
}

// mergeMetricsConfig merges source into dest.
//
// Parameters:
//
//	dest: The destination MetricsConfig to merge into.
//	source: The source MetricsConfig to merge from.
func mergeMetricsConfig(dest, source *MetricsConfig) {
	if source.Enabled { dest.Enabled = true }
	if source.Port != 0 { dest.Port = source.Port }
}

// mergeTelemetryConfig merges source into dest.
//
// Parameters:
//
//	dest: The destination TelemetryConfig to merge into.
//	source: The source TelemetryConfig to merge from.
func mergeTelemetryConfig(dest, source *TelemetryConfig) {
	if source.Enabled { dest.Enabled = true }
	if source.Endpoint != "" { dest.Endpoint = source.Endpoint }
	if source.Protocol != "" { dest.Protocol = source.Protocol }
	if source.ServiceName != "" { dest.ServiceName = source.ServiceName }
	if source.SampleRatio != 0 { dest.SampleRatio = source.SampleRatio }
	if source.Insecure { dest.Insecure = true }
}

// mergeSystemConfig merges source into dest.
//
// Parameters:
//
//	dest: The destination SystemConfig to merge into.
//	source: The source SystemConfig to merge from.
func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" { dest.Timezone = source.Timezone }
	if source.Logging.Level != "" { dest.Logging.Level = source.Logging.Level }
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to determine the environment variable name.
//
// Parameters:
//
//	val: The reflect.Value of the struct to populate.
//	prefix: The prefix for environment variable names (e.g., "SETWAVE_BATCH_").
//
// Returns: An error if any field cannot be set.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		if field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String {
			// Adapter sections stay loosely typed until configbinder resolves them,
			// so overrides such as SETWAVE_DATABASE_METADATA_HOST are merged key by key.
			loadMapOverridesFromEnv(field, envVarName+"_")
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadMapOverridesFromEnv merges environment variable overrides into a loosely
// typed configuration map. Map keys and section field names are inferred from
// the environment variable name.
//
// Example: For the AdapterConfigs field, an environment variable
// SETWAVE_DATABASE_METADATA_HOST=localhost sets the "host" entry of the
// section stored under the key "metadata".
//
// Parameters:
//
//	mapField: The reflect.Value of the map field (e.g., cfg.Setwave.AdapterConfigs).
//	prefix: The environment variable prefix for this map (e.g., "SETWAVE_DATABASE_").
func loadMapOverridesFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}

		// Example: SETWAVE_DATABASE_METADATA_HOST=localhost -> keyAndField="METADATA_HOST", envValue="localhost"
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 || keyAndField[1] == "" {
			continue
		}
		sectionKey := strings.ToLower(keyAndField[0])
		fieldKey := strings.ToLower(keyAndField[1])

		// Get or create the section map, preserving entries loaded from YAML.
		var section map[string]interface{}
		if existing := mapField.MapIndex(reflect.ValueOf(sectionKey)); existing.IsValid() {
			if m, ok := existing.Interface().(map[string]interface{}); ok {
				section = m
			}
		}
		if section == nil {
			section = make(map[string]interface{})
		}

		// The value stays a string here; configbinder converts it when the
		// section is bound to its typed destination.
		section[fieldKey] = parts[1]
		mapField.SetMapIndex(reflect.ValueOf(sectionKey), reflect.ValueOf(section))
	}
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, and bool types.
//
// Parameters:
//
//	field: The reflect.Value of the field to set.
//	value: The string value to convert and set.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
