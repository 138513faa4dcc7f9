package config

// Package config provides structures and utilities for managing application configuration.

import "strings"

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
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

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`             // Enabled turns the limiter on.
	RequestsPerMinute int  `yaml:"requests_per_minute"` // RequestsPerMinute is the allowance per client IP.
}

// WebConfig holds the HTTP server settings.
type WebConfig struct {
	// Host is the interface the server binds to. Empty binds all interfaces.
	Host string `yaml:"host"`
	// Port is the TCP port. 0 picks a free port.
	Port int `yaml:"port"`
	// ReadTimeoutSeconds bounds reading a full request.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds"`
	// WriteTimeoutSeconds bounds writing a response.
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
	// MaxBodyBytes limits JSON request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// RateLimit configures request rate limiting.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// DefaultDBRef is the name of the DBConnection used by applications that do not name one.
	DefaultDBRef string `yaml:"default_db_ref"`
	// ExportStorageRef is the name of the storage connection that receives exports.
	ExportStorageRef string `yaml:"export_storage_ref"`
}

// MigrationConfig controls schema migration at start-up.
type MigrationConfig struct {
	Enabled     bool   `yaml:"enabled"`      // Enabled runs migrations when the application starts.
	AutoMigrate bool   `yaml:"auto_migrate"` // AutoMigrate lets gorm create tables for apps without SQL migrations.
	TablePrefix string `yaml:"table_prefix"` // TablePrefix prefixes each app's migration history table.
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // "grpc" or "http"
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	ServiceName  string  `yaml:"service_name"`
	SamplingRate float64 `yaml:"sampling_rate"`
	// MetricsAsyncBufferSize is the queue length of the asynchronous metric recorder.
	// 0 or less records synchronously.
	MetricsAsyncBufferSize int `yaml:"metrics_async_buffer_size"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedKeys is a list of configuration keys whose values should be masked in logs.
	MaskedKeys []string `yaml:"masked_keys"`
}

// IsMasked reports whether key names a value that must not be logged.
func (s SecurityConfig) IsMasked(key string) bool {
	for _, k := range s.MaskedKeys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// StorefrontConfig holds all configuration under the "storefront" top-level key.
type StorefrontConfig struct {
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Web contains the HTTP server configuration.
	Web WebConfig `yaml:"web"`
	// InstalledApps lists the application names to install, in order.
	InstalledApps []string `yaml:"installed_apps"`
	// Infrastructure contains infrastructure-related configurations.
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// Migration contains schema migration settings.
	Migration MigrationConfig `yaml:"migration"`
	// Telemetry contains OpenTelemetry settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Security contains security-related configurations.
	Security SecurityConfig `yaml:"security"`
	// AdaptorConfigs holds database connection configurations keyed by connection name.
	AdaptorConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds storage connection configurations keyed by connection name.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Storefront StorefrontConfig `yaml:"storefront"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Storefront: StorefrontConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Web: WebConfig{
				Port:                   8080,
				ReadTimeoutSeconds:     15,
				WriteTimeoutSeconds:    30,
				ShutdownTimeoutSeconds: 10,
				MaxBodyBytes:           1 << 20,
				RateLimit:              RateLimitConfig{RequestsPerMinute: 600},
			},
			Infrastructure: InfrastructureConfig{
				DefaultDBRef:     "default",
				ExportStorageRef: "exports",
			},
			Migration: MigrationConfig{
				TablePrefix: "schema_migrations",
			},
			Telemetry: TelemetryConfig{
				Exporter:     "grpc",
				ServiceName:  "storefront",
				SamplingRate: 1.0,
			},
			Security: SecurityConfig{
				MaskedKeys: []string{"password", "api_key", "secret", "credentials_file"},
			},
		},
	}

	cfg.Storefront.AdaptorConfigs = map[string]interface{}{}
	cfg.Storefront.StorageConfigs = map[string]interface{}{}
	return cfg
}
