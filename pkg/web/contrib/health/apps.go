// Package health is an installable app reporting whether the process can serve traffic.
package health

import "github.com/tigerroll/storefront/pkg/web/core/apps"

// Name is the app name and label of the health app.
const Name = "health"

// HealthConfig is the AppConfig of the health app.
type HealthConfig struct {
	apps.BaseAppConfig
}

// NewHealthConfig returns the health app config.
func NewHealthConfig() *HealthConfig {
	return &HealthConfig{BaseAppConfig: apps.BaseAppConfig{
		AppName:        Name,
		AppVerboseName: "Health Checks",
	}}
}
