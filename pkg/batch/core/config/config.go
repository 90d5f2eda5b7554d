package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
// It is used to control the verbosity of log output.
type LogLevel string

const (
	LogLevelTrace  LogLevel = "TRACE"
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys is a list of keys in run definition properties whose values should be masked in logs.
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// BatchConfig holds configuration specific to the run engine.
type BatchConfig struct {
	// RunName is the name of the run definition to launch. When empty, the first
	// definition in the run definition file is used.
	RunName string `yaml:"run_name"`
	// RunDefinitionPath is the path of an external run definition YAML file.
	// When empty, the embedded run definition resource is used.
	RunDefinitionPath string `yaml:"run_definition_path"`
	// ChunkSize is the maximum number of record identifiers packed into one chunk.
	ChunkSize int `yaml:"chunk_size"`
	// MetricsAsyncBufferSize is the buffer size for asynchronous metric recording.
	MetricsAsyncBufferSize int `yaml:"metrics_async_buffer_size"`
}

// RemoteConfig holds connection settings for the remote code execution service.
type RemoteConfig struct {
	// Endpoint is the URL of the remote execution SOAP endpoint.
	Endpoint string `yaml:"endpoint"`
	// SessionToken is a pre-issued session identifier sent with each call.
	// When empty, the session provider component supplies one.
	SessionToken string `yaml:"session_token"`
	// TimeoutSeconds is the per-call deadline for one remote execution, in seconds.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// NotificationConfig holds settings for the completion notification channel.
type NotificationConfig struct {
	// Kind selects the notification channel ("log" or "webhook").
	Kind string `yaml:"kind"`
	// WebhookURL is the destination URL when Kind is "webhook".
	WebhookURL string `yaml:"webhook_url"`
	// TimeoutSeconds is the per-delivery deadline, in seconds.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// MetricsConfig holds settings for the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns the /metrics HTTP listener on or off.
	Enabled bool `yaml:"enabled"`
	// Port is the listen port for the /metrics endpoint.
	Port int `yaml:"port"`
}

// TelemetryConfig holds settings for OpenTelemetry (OTLP) export.
type TelemetryConfig struct {
	// Enabled turns OTLP trace and metric export on or off.
	Enabled bool `yaml:"enabled"`
	// Endpoint is the OTLP collector address (host:port).
	Endpoint string `yaml:"endpoint"`
	// Protocol selects the OTLP transport ("grpc" or "http").
	Protocol string `yaml:"protocol"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
	// SampleRatio is the trace sampling ratio in [0.0, 1.0].
	SampleRatio float64 `yaml:"sample_ratio"`
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// MigrationConfig holds settings for running schema migrations at startup.
type MigrationConfig struct {
	// Enabled turns startup migrations on or off.
	Enabled bool `yaml:"enabled"`
	// DBRef is the name of the DBConnection to migrate. When empty,
	// RunRepositoryDBRef is used.
	DBRef string `yaml:"db_ref"`
	// FSName selects a registered migration filesystem. When empty, the
	// framework's embedded journal migrations are used.
	FSName string `yaml:"fs_name"`
	// Dir is the directory within the migration filesystem holding the SQL
	// files. When empty, the database type is used (e.g., "postgres").
	Dir string `yaml:"dir"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// RunRepositoryDBRef is the name of the DBConnection used by the run repository (e.g., "metadata").
	RunRepositoryDBRef string `yaml:"run_repository_db_ref"`
	// Migration configures journal schema migrations applied before a run starts.
	Migration MigrationConfig `yaml:"migration"`
}

// SetwaveConfig holds all configuration under the "setwave" top-level key.
type SetwaveConfig struct {
	// Batch contains run engine specific configurations.
	Batch BatchConfig `yaml:"batch"`
	// Remote contains remote execution service configurations.
	Remote RemoteConfig `yaml:"remote"`
	// Notification contains completion notification configurations.
	Notification NotificationConfig `yaml:"notification"`
	// Metrics contains Prometheus endpoint configurations.
	Metrics MetricsConfig `yaml:"metrics"`
	// Telemetry contains OpenTelemetry export configurations.
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Infrastructure contains infrastructure-related configurations.
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// Security contains security-related configurations.
	Security SecurityConfig `yaml:"security"`
	// AdapterConfigs holds configurations for various adapters, typically database connections.
	AdapterConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds named object storage connection configurations.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Setwave contains the top-level configuration for the Setwave run engine.
	Setwave SetwaveConfig `yaml:"setwave"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// GlobalConfig is a pointer to the configuration instance shared across the application.
// It is expected to be set via fx.Supply or fx.Provide.
var GlobalConfig *Config

// GetMaskedParameterKeys retrieves the list of keys to be masked from the global configuration.
//
// Returns:
//
//	A slice of strings representing the keys whose values should be masked.
func GetMaskedParameterKeys() []string {
	if GlobalConfig == nil {
		return []string{}
	}
	return GlobalConfig.Setwave.Security.MaskedParameterKeys
}

// NewConfig returns a new instance of Config with default values.
//
// Returns:
//
//	A pointer to a new Config instance initialized with default settings.
func NewConfig() *Config {
	cfg := &Config{
		Setwave: SetwaveConfig{
			System: SystemConfig{
				Timezone: "UTC", // Default value set to UTC
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Batch: BatchConfig{
				RunName:                "",  // Default run name is empty. The first run definition is launched.
				ChunkSize:              200, // Default chunk size.
				MetricsAsyncBufferSize: 100, // Default buffer size for asynchronous metrics.
			},
			Remote: RemoteConfig{
				TimeoutSeconds: 120, // Default per-call deadline for remote execution.
			},
			Notification: NotificationConfig{
				Kind:           "log", // Default delivery channel writes the report to the application log.
				TimeoutSeconds: 10,
			},
			Metrics: MetricsConfig{
				Enabled: false,
				Port:    2112,
			},
			Telemetry: TelemetryConfig{
				Enabled:     false,
				Endpoint:    "localhost:4317",
				Protocol:    "grpc",
				ServiceName: "setwave",
				SampleRatio: 1.0,
			},
			Infrastructure: InfrastructureConfig{ // Default values.
				RunRepositoryDBRef: "metadata",
			},
			Security: SecurityConfig{ // Default values.
				MaskedParameterKeys: []string{"password", "api_key", "secret", "session_token"},
			},
		},
	}

	// Initialize the adapter maps as empty, to be populated by YAML or by mergeConfig.
	cfg.Setwave.AdapterConfigs = map[string]interface{}{}
	cfg.Setwave.StorageConfigs = map[string]interface{}{}
	return cfg
}
