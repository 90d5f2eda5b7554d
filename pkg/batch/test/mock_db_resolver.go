package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	dbadapter "github.com/tigerroll/setwave/pkg/batch/adapter/database"
	coreadapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// MockDBConnectionResolver is a mock implementation of the adapter.DBConnectionResolver
// interface. It uses testify/mock to allow for flexible mocking of method calls.
type MockDBConnectionResolver struct {
	mock.Mock
}

// ResolveDBConnection mocks the ResolveDBConnection method.
// It records the call and returns the predefined values.
func (m *MockDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(dbadapter.DBConnection), args.Error(1)
}

// ResolveConnection mocks the ResolveConnection method.
// It records the call and returns the predefined values.
func (m *MockDBConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreadapter.ResourceConnection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(coreadapter.ResourceConnection), args.Error(1)
}

// ResolveConnectionName mocks the ResolveConnectionName method.
// It records the call and returns the predefined values.
func (m *MockDBConnectionResolver) ResolveConnectionName(ctx context.Context, run *model.Run, defaultName string) (string, error) {
	args := m.Called(ctx, run, defaultName)
	return args.String(0), args.Error(1)
}

// testSingleConnectionResolver is a concrete implementation of adapter.DBConnectionResolver
// designed for tests that always return a single, predefined DBConnection.
type testSingleConnectionResolver struct {
	conn dbadapter.DBConnection // The single database connection to be returned.
}

// ResolveDBConnection implements the adapter.DBConnectionResolver interface.
// It always returns the pre-configured DBConnection.
func (r *testSingleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	return r.conn, nil
}

// ResolveConnection implements the coreadapter.ResourceConnectionResolver interface.
// It always returns the pre-configured DBConnection.
func (r *testSingleConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreadapter.ResourceConnection, error) {
	return r.conn, nil
}

// ResolveConnectionName implements the coreadapter.ResourceConnectionResolver interface.
// For testing purposes, it simply returns the provided defaultName.
func (r *testSingleConnectionResolver) ResolveConnectionName(ctx context.Context, run *model.Run, defaultName string) (string, error) {
	return defaultName, nil
}

// NewTestSingleConnectionResolver creates a new instance of testSingleConnectionResolver.
// This helper function is useful for tests that need a predictable DBConnectionResolver
// that always returns a specific connection.
//
// Parameters:
//
//	conn: The adapter.DBConnection instance that this resolver will always return.
//
// Returns:
//
//	adapter.DBConnectionResolver: A new test-specific DB connection resolver.
func NewTestSingleConnectionResolver(conn dbadapter.DBConnection) dbadapter.DBConnectionResolver {
	return &testSingleConnectionResolver{conn: conn}
}

// Verify interface compliance.
var _ dbadapter.DBConnectionResolver = (*MockDBConnectionResolver)(nil)
var _ dbadapter.DBConnectionResolver = (*testSingleConnectionResolver)(nil)
