package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/storefront/pkg/web/adapter/storage"
)

// Module provides the LocalProvider into the storage provider group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.ResultTags(`group:"`+storageAdapter.StorageProviderGroup+`"`),
	)),
)
