// Package test provides testify mocks and fixtures shared by the framework and application tests.
package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	tx "github.com/tigerroll/storefront/pkg/web/core/tx"
)

// MockTx is a testify mock of tx.Tx.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	args := m.Called(ctx, model, operation, tableName, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	args := m.Called(ctx, model, tableName, conflictColumns, updateColumns)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	return m.Called(ctx, target, query).Error(0)
}

func (m *MockTx) IsTableNotExistError(err error) bool {
	return m.Called(err).Bool(0)
}

func (m *MockTx) Savepoint(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockTx) RollbackToSavepoint(name string) error {
	return m.Called(name).Error(0)
}

// OnQuery expects ExecuteQuery with query and lets fill populate the target.
// A nil fill leaves the target empty, which repositories report as not found.
func (m *MockTx) OnQuery(query map[string]interface{}, fill func(target interface{})) *mock.Call {
	return m.On("ExecuteQuery", mock.Anything, mock.Anything, query).
		Run(func(args mock.Arguments) {
			if fill != nil {
				fill(args.Get(1))
			}
		}).
		Return(nil)
}

// OnUpdate expects ExecuteUpdate of operation on tableName and reports rows affected.
func (m *MockTx) OnUpdate(operation, tableName string, query map[string]interface{}, rows int64, err error) *mock.Call {
	return m.On("ExecuteUpdate", mock.Anything, mock.Anything, operation, tableName, query).Return(rows, err)
}

// MockTxManager is a testify mock of tx.TransactionManager.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tx.Tx), args.Error(1)
}

func (m *MockTxManager) Commit(t tx.Tx) error {
	return m.Called(t).Error(0)
}

func (m *MockTxManager) Rollback(t tx.Tx) error {
	return m.Called(t).Error(0)
}

// ExpectCommit expects one transaction on t that ends in Commit.
func (m *MockTxManager) ExpectCommit(t tx.Tx) {
	m.On("Begin", mock.Anything, mock.Anything).Return(t, nil).Once()
	m.On("Commit", t).Return(nil).Once()
}

// ExpectRollback expects one transaction on t that ends in Rollback.
func (m *MockTxManager) ExpectRollback(t tx.Tx) {
	m.On("Begin", mock.Anything, mock.Anything).Return(t, nil).Once()
	m.On("Rollback", t).Return(nil).Once()
}

var (
	_ tx.Tx                 = (*MockTx)(nil)
	_ tx.TransactionManager = (*MockTxManager)(nil)
)
