package apps_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/tigerroll/storefront/pkg/web/core/apps"
	"github.com/tigerroll/storefront/pkg/web/core/config"
)

func TestModule_PopulatesOnStart(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storefront.InstalledApps = []string{"orders", "catalog"}

	var observed []string
	var reg *apps.Registry
	app := fxtest.New(t,
		fx.Supply(cfg),
		apps.Module,
		apps.AsAppConfig(newCatalog),
		apps.AsAppConfig(func() *hookedConfig {
			return &hookedConfig{BaseAppConfig: apps.BaseAppConfig{AppName: "orders"}}
		}),
		fx.Provide(fx.Annotate(
			func() apps.HookObserver {
				return func(label string, _ time.Duration, _ error) { observed = append(observed, label) }
			},
			fx.ResultTags(apps.HookObserverGroup),
		)),
		fx.Populate(&reg),
	)

	require.False(t, reg.AppsReady())
	app.RequireStart()
	defer app.RequireStop()

	require.True(t, reg.Ready())
	labels := []string{}
	for _, c := range reg.GetAppConfigs() {
		labels = append(labels, c.Label())
	}
	assert.Equal(t, []string{"orders", "catalog"}, labels)
	assert.Equal(t, []string{"orders"}, observed)

	got, err := reg.GetAppConfig("catalog")
	require.NoError(t, err)
	assert.IsType(t, &catalogConfig{}, got)
}

func TestModule_UnknownInstalledAppFailsConstruction(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storefront.InstalledApps = []string{"catalog", "billing"}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		apps.Module,
		apps.AsAppConfig(newCatalog),
		fx.Invoke(func(*apps.Registry) {}),
	)
	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "installed app 'billing' has no registered config")
}
