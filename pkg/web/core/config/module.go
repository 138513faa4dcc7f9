// Package config provides core configuration structures and utilities for the web framework.
// This module defines Fx providers for configuration-related components.
package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts and provides *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Storefront.System.Logging
}

// NewWebConfigProvider extracts and provides *WebConfig from *Config.
func NewWebConfigProvider(cfg *Config) *WebConfig {
	return &cfg.Storefront.Web
}

// NewTelemetryConfigProvider extracts and provides *TelemetryConfig from *Config.
func NewTelemetryConfigProvider(cfg *Config) *TelemetryConfig {
	return &cfg.Storefront.Telemetry
}

// Module provides configuration-related components to Fx.
// *Config itself is supplied by the application (see LoadConfig) or built by NewConfigProvider.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewWebConfigProvider),
	fx.Provide(NewTelemetryConfigProvider),
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
)
