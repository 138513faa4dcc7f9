// Package adapter defines the resource abstractions shared by database and storage adapters.
package adapter

import (
	"context"
)

// ResourceConnection represents a generic connection to any resource (e.g., database, storage).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "mysql", "gcs").
	Type() string
	// Name returns the connection name (e.g., "default", "exports").
	Name() string
}

// ResourceProvider is an interface responsible for providing resource connections based on configuration.
type ResourceProvider interface {
	// GetConnection retrieves a resource connection with the specified name.
	GetConnection(name string) (ResourceConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the type of resource handled by this provider (e.g., "sqlite", "local").
	Type() string
}

// ResourceConnectionResolver resolves connection instances by name.
type ResourceConnectionResolver interface {
	// ResolveConnection resolves a resource connection instance by name.
	// The returned connection is valid; implementations re-establish it if necessary.
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)

	// ResolveConnectionName picks the connection an application should use.
	// A connection configured under the application's label wins over defaultName.
	ResolveConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error)
}
