// Package storage defines the common interfaces for object storage adapters.
// Applications upload exports and other artifacts through these interfaces,
// independent of whether the backend is GCS or the local file system.
package storage

import (
	"context"
	"io"

	storageConfig "github.com/tigerroll/storefront/pkg/web/adapter/storage/config"
	coreAdapter "github.com/tigerroll/storefront/pkg/web/core/adapter"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	// An empty bucket means the connection's configured bucket.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the specified object. The caller must close the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object under prefix. Iteration stops at the first error fn returns.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection represents a named connection to one storage backend.
type StorageConnection interface {
	coreAdapter.ResourceConnection // Close(), Type(), Name()
	StorageExecutor

	// Config returns the storage configuration associated with this connection.
	Config() storageConfig.StorageConfig
}

// StorageProvider manages the connections of one storage type.
type StorageProvider interface {
	// GetConnection retrieves a StorageConnection with the specified name.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g., "gcs", "local").
	Type() string
	// ForceReconnect closes and re-establishes the named connection.
	ForceReconnect(name string) (StorageConnection, error)
}

// StorageConnectionResolver resolves storage connections by name.
type StorageConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveStorageConnection resolves a StorageConnection instance by name.
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)

	// ResolveStorageConnectionName picks the storage connection for an application.
	ResolveStorageConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error)
}

// StorageProviderGroup is the Fx group every StorageProvider implementation is provided into.
const StorageProviderGroup = "storage_providers"
