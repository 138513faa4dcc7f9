package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	dbadapter "github.com/tigerroll/storefront/pkg/web/adapter/database"
	coreadapter "github.com/tigerroll/storefront/pkg/web/core/adapter"
)

// MockDBConnectionResolver is a testify mock of database.DBConnectionResolver.
type MockDBConnectionResolver struct {
	mock.Mock
}

// ResolveDBConnectionName mocks the ResolveDBConnectionName method.
func (m *MockDBConnectionResolver) ResolveDBConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error) {
	args := m.Called(ctx, appLabel, defaultName)
	return args.String(0), args.Error(1)
}

// ResolveConnectionName mocks the ResolveConnectionName method.
func (m *MockDBConnectionResolver) ResolveConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error) {
	args := m.Called(ctx, appLabel, defaultName)
	return args.String(0), args.Error(1)
}

// ResolveDBConnection mocks the ResolveDBConnection method.
func (m *MockDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(dbadapter.DBConnection), args.Error(1)
}

// ResolveConnection mocks the ResolveConnection method.
func (m *MockDBConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreadapter.ResourceConnection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(coreadapter.ResourceConnection), args.Error(1)
}

// testSingleConnectionResolver resolves every name to one predefined connection.
type testSingleConnectionResolver struct {
	conn dbadapter.DBConnection
}

func (r *testSingleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	return r.conn, nil
}

func (r *testSingleConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreadapter.ResourceConnection, error) {
	return r.conn, nil
}

func (r *testSingleConnectionResolver) ResolveDBConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error) {
	return r.conn.Name(), nil
}

func (r *testSingleConnectionResolver) ResolveConnectionName(ctx context.Context, appLabel string, defaultName string) (string, error) {
	return r.conn.Name(), nil
}

// NewTestSingleConnectionResolver returns a resolver that always yields conn.
func NewTestSingleConnectionResolver(conn dbadapter.DBConnection) dbadapter.DBConnectionResolver {
	return &testSingleConnectionResolver{conn: conn}
}

var _ dbadapter.DBConnectionResolver = (*MockDBConnectionResolver)(nil)
var _ dbadapter.DBConnectionResolver = (*testSingleConnectionResolver)(nil)
