package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	tx "github.com/tigerroll/setwave/pkg/batch/core/tx"
)

// MockTx is a mock implementation of the tx.Tx interface.
// It provides mock methods for transaction-related operations,
// allowing for isolated testing of components that interact with transactions.
type MockTx struct {
	mock.Mock
}

// ExecuteUpdate mocks the ExecuteUpdate method of tx.TxExecutor.
// It records the call and returns the predefined values.
func (m *MockTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error) {
	args := m.Called(ctx, model, operation, tableName, query)
	return args.Get(0).(int64), args.Error(1)
}

// ExecuteQueryAdvanced mocks the ExecuteQueryAdvanced method of tx.TxExecutor.
// It records the call and returns the predefined error.
func (m *MockTx) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	args := m.Called(ctx, target, query, orderBy, limit)
	return args.Error(0)
}

// Count mocks the Count method of tx.TxExecutor.
// It records the call and returns the predefined values.
func (m *MockTx) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	args := m.Called(ctx, model, query)
	return args.Get(0).(int64), args.Error(1)
}

// IsTableNotExistError mocks the IsTableNotExistError method of tx.TxExecutor.
// It records the call and returns the predefined boolean value.
func (m *MockTx) IsTableNotExistError(err error) bool {
	args := m.Called(err)
	return args.Bool(0)
}

// Commit mocks the Commit method of tx.Tx.
// It records the call and returns the predefined error.
func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

// Rollback mocks the Rollback method of tx.Tx.
// It records the call and returns the predefined error.
func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockTxManager is a mock implementation of the tx.TransactionManager interface.
// It allows for mocking the start of transactions.
type MockTxManager struct {
	mock.Mock
}

// Begin mocks the Begin method of tx.TransactionManager.
// It records the call and returns a mock Tx instance or an error.
func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tx.Tx), args.Error(1)
}

// Ensure that MockTx implements the tx.Tx interface.
var _ tx.Tx = (*MockTx)(nil)

// Ensure that MockTxManager implements the tx.TransactionManager interface.
var _ tx.TransactionManager = (*MockTxManager)(nil)
