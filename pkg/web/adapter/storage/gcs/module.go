package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/storefront/pkg/web/adapter/storage"
)

// Module provides the GCSProvider into the storage provider group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.ResultTags(`group:"`+storageAdapter.StorageProviderGroup+`"`),
	)),
)
