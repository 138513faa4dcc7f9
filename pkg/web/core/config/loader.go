package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"

	"go.uber.org/fx"
)

// Package config provides utilities for loading and managing application configuration
// from various sources, including YAML files and environment variables.

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig      // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string              `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
	Expander       EnvironmentExpander `optional:"true"`
}

// loadConfig loads configuration from the embedded YAML and environment variables.
// Order of precedence (lowest first): NewConfig defaults, YAML, environment.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}
	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewAppError(moduleName, "failed to expand environment variables in embedded config", exception.ErrInvalidArgument, err)
	}

	cfg := NewConfig()

	// YAML is parsed into a separate struct so zero values can be told apart from defaults.
	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewAppError(moduleName, "failed to unmarshal embedded config", exception.ErrInvalidArgument, err)
	}
	mergeConfig(cfg, &yamlConfig)
	if err := applyExplicitZeroes(cfg, expanded); err != nil {
		return nil, exception.NewAppError(moduleName, "failed to unmarshal embedded config", exception.ErrInvalidArgument, err)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewAppError(moduleName, "failed to load config from environment variables", exception.ErrInvalidArgument, err)
	}
	cfg.EmbeddedConfig = embeddedConfig

	if err := validateConfig(cfg); err != nil {
		return nil, exception.NewAppError(moduleName, "invalid configuration", exception.ErrInvalidArgument, err)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also sets the global logger level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Storefront.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Storefront.System.Logging.Level)
	return cfg, nil
}

// LoadConfig loads configuration from the embedded YAML, the .env file and environment variables.
// It is expected to be called once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig, nil)
}

// validateConfig checks values that would otherwise fail late, at server or exporter start.
func validateConfig(cfg *Config) error {
	var result *multierror.Error
	sc := &cfg.Storefront

	if sc.Web.Port < 0 || sc.Web.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("web.port %d is out of range", sc.Web.Port))
	}
	if sc.Web.MaxBodyBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("web.max_body_bytes must be positive, got %d", sc.Web.MaxBodyBytes))
	}
	if sc.Web.RateLimit.Enabled && sc.Web.RateLimit.RequestsPerMinute <= 0 {
		result = multierror.Append(result, fmt.Errorf("web.rate_limit.requests_per_minute must be positive when rate limiting is enabled"))
	}
	if _, err := time.LoadLocation(sc.System.Timezone); err != nil {
		result = multierror.Append(result, fmt.Errorf("system.timezone '%s': %w", sc.System.Timezone, err))
	}
	switch strings.ToLower(sc.Telemetry.Exporter) {
	case "grpc", "http":
	default:
		result = multierror.Append(result, fmt.Errorf("telemetry.exporter must be 'grpc' or 'http', got '%s'", sc.Telemetry.Exporter))
	}
	if sc.Telemetry.SamplingRate < 0 || sc.Telemetry.SamplingRate > 1 {
		result = multierror.Append(result, fmt.Errorf("telemetry.sampling_rate must be within [0, 1], got %v", sc.Telemetry.SamplingRate))
	}
	seen := make(map[string]struct{}, len(sc.InstalledApps))
	for _, name := range sc.InstalledApps {
		if _, dup := seen[name]; dup {
			result = multierror.Append(result, fmt.Errorf("installed_apps lists '%s' more than once", name))
		}
		seen[name] = struct{}{}
	}
	return result.ErrorOrNil()
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig overwrite those in destConfig when they are not zero values.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeStorefrontConfig(&destConfig.Storefront, &sourceConfig.Storefront)
}

func mergeStorefrontConfig(dest, source *StorefrontConfig) {
	mergeSystemConfig(&dest.System, &source.System)
	mergeWebConfig(&dest.Web, &source.Web)

	if source.InstalledApps != nil {
		dest.InstalledApps = source.InstalledApps
	}

	if source.Infrastructure.DefaultDBRef != "" {
		dest.Infrastructure.DefaultDBRef = source.Infrastructure.DefaultDBRef
	}
	if source.Infrastructure.ExportStorageRef != "" {
		dest.Infrastructure.ExportStorageRef = source.Infrastructure.ExportStorageRef
	}

	if source.Migration.Enabled {
		dest.Migration.Enabled = true
	}
	if source.Migration.AutoMigrate {
		dest.Migration.AutoMigrate = true
	}
	if source.Migration.TablePrefix != "" {
		dest.Migration.TablePrefix = source.Migration.TablePrefix
	}

	mergeTelemetryConfig(&dest.Telemetry, &source.Telemetry)

	if source.Security.MaskedKeys != nil {
		dest.Security.MaskedKeys = source.Security.MaskedKeys
	}

	dest.AdaptorConfigs = mergeMaps(dest.AdaptorConfigs, source.AdaptorConfigs)
	dest.StorageConfigs = mergeMaps(dest.StorageConfigs, source.StorageConfigs)
}

func mergeMaps(dest, source map[string]interface{}) map[string]interface{} {
	if dest == nil {
		dest = make(map[string]interface{})
	}
	for key, value := range source {
		dest[key] = value
	}
	return dest
}

func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" {
		dest.Timezone = source.Timezone
	}
	if source.Logging.Level != "" {
		dest.Logging.Level = source.Logging.Level
	}
}

func mergeWebConfig(dest, source *WebConfig) {
	if source.Host != "" {
		dest.Host = source.Host
	}
	if source.Port != 0 {
		dest.Port = source.Port
	}
	if source.ReadTimeoutSeconds != 0 {
		dest.ReadTimeoutSeconds = source.ReadTimeoutSeconds
	}
	if source.WriteTimeoutSeconds != 0 {
		dest.WriteTimeoutSeconds = source.WriteTimeoutSeconds
	}
	if source.ShutdownTimeoutSeconds != 0 {
		dest.ShutdownTimeoutSeconds = source.ShutdownTimeoutSeconds
	}
	if source.MaxBodyBytes != 0 {
		dest.MaxBodyBytes = source.MaxBodyBytes
	}
	if source.RateLimit.Enabled {
		dest.RateLimit.Enabled = true
	}
	if source.RateLimit.RequestsPerMinute != 0 {
		dest.RateLimit.RequestsPerMinute = source.RateLimit.RequestsPerMinute
	}
}

func mergeTelemetryConfig(dest, source *TelemetryConfig) {
	if source.Enabled {
		dest.Enabled = true
	}
	if source.Exporter != "" {
		dest.Exporter = source.Exporter
	}
	if source.Endpoint != "" {
		dest.Endpoint = source.Endpoint
	}
	if source.Insecure {
		dest.Insecure = true
	}
	if source.ServiceName != "" {
		dest.ServiceName = source.ServiceName
	}
	if source.SamplingRate != 0 {
		dest.SamplingRate = source.SamplingRate
	}
	if source.MetricsAsyncBufferSize != 0 {
		dest.MetricsAsyncBufferSize = source.MetricsAsyncBufferSize
	}
}

// explicitValues mirrors the keys whose zero value is meaningful, so that
// presence in the YAML can be told apart from absence.
type explicitValues struct {
	Storefront struct {
		Telemetry struct {
			SamplingRate *float64 `yaml:"sampling_rate"`
		} `yaml:"telemetry"`
	} `yaml:"storefront"`
}

// applyExplicitZeroes copies values mergeConfig skips because they are zero.
func applyExplicitZeroes(cfg *Config, data []byte) error {
	var explicit explicitValues
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return err
	}
	if rate := explicit.Storefront.Telemetry.SamplingRate; rate != nil {
		cfg.Storefront.Telemetry.SamplingRate = *rate
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to determine the environment variable name,
// e.g. Config.Storefront.Web.Port is read from STOREFRONT_WEB_PORT.
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

		if field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Interface {
			// STOREFRONT_DATABASE_DEFAULT_HOST=db sets database["default"]["host"].
			loadMapFromEnv(field, envVarName+"_")
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

// loadMapFromEnv sets entries of a map[string]interface{} whose values are
// themselves string-keyed maps. The first segment after prefix is the map key and
// the rest, lower-cased, is the nested key.
func loadMapFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	m := mapField.Interface().(map[string]interface{})

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 || keyAndField[0] == "" || keyAndField[1] == "" {
			continue
		}
		mapKey := strings.ToLower(keyAndField[0])
		fieldName := strings.ToLower(keyAndField[1])

		entry, ok := m[mapKey].(map[string]interface{})
		if !ok {
			entry = make(map[string]interface{})
		}
		entry[fieldName] = parts[1]
		m[mapKey] = entry
	}
}

// setField sets the value of a reflect.Value field based on its kind.
// String slices accept a comma-separated list.
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
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		items := make([]string, 0)
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
