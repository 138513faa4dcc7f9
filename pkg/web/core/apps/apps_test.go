package apps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/storefront/pkg/web/core/apps"
)

func TestBaseAppConfig_Defaults(t *testing.T) {
	cfg := apps.BaseAppConfig{AppName: "shop.product_management"}

	assert.Equal(t, "shop.product_management", cfg.Name())
	assert.Equal(t, "product_management", cfg.Label())
	assert.Equal(t, "Product Management", cfg.VerboseName())
	assert.Empty(t, cfg.Path())
}

func TestBaseAppConfig_ExplicitValuesWin(t *testing.T) {
	cfg := apps.BaseAppConfig{
		AppName:        "contrib/health",
		AppLabel:       "healthz",
		AppVerboseName: "  Liveness  ",
		AppPath:        "pkg/web/contrib/health",
	}

	assert.Equal(t, "healthz", cfg.Label())
	assert.Equal(t, "  Liveness  ", cfg.VerboseName(), "verbose names are stored verbatim")
	assert.Equal(t, "pkg/web/contrib/health", cfg.Path())
}

func TestDefaultLabel(t *testing.T) {
	assert.Equal(t, "catalog", apps.DefaultLabel("catalog"))
	assert.Equal(t, "catalog", apps.DefaultLabel("shop.catalog"))
	assert.Equal(t, "catalog", apps.DefaultLabel("github.com/acme/catalog"))
}

func TestDefaultVerboseName(t *testing.T) {
	assert.Equal(t, "Product Management", apps.DefaultVerboseName("product_management"))
	assert.Equal(t, "Health", apps.DefaultVerboseName("health"))
	assert.Equal(t, "Api V2", apps.DefaultVerboseName("API__v2"))
	assert.Equal(t, "", apps.DefaultVerboseName(""))
}

func TestIsValidLabel(t *testing.T) {
	for _, ok := range []string{"a", "_private", "product_management", "v2"} {
		assert.True(t, apps.IsValidLabel(ok), ok)
	}
	for _, bad := range []string{"", "2fa", "product-management", "shop.catalog", "has space"} {
		assert.False(t, apps.IsValidLabel(bad), bad)
	}
}
