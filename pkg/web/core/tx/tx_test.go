package tx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/storefront/pkg/web/core/tx"
	"github.com/tigerroll/storefront/pkg/web/test"
)

func TestWithTxAndTxFromContext(t *testing.T) {
	_, ok := tx.TxFromContext(context.Background())
	assert.False(t, ok)

	mockTx := new(test.MockTx)
	ctx := tx.WithTx(context.Background(), mockTx)
	got, ok := tx.TxFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, mockTx, got)

	// A plain string key must not be mistaken for the transaction.
	ctx = context.WithValue(context.Background(), "tx", mockTx) //nolint:staticcheck
	_, ok = tx.TxFromContext(ctx)
	assert.False(t, ok)
}

func TestRun_CommitsOnSuccess(t *testing.T) {
	mockTx := new(test.MockTx)
	tm := new(test.MockTxManager)
	tm.On("Begin", mock.Anything, mock.Anything).Return(mockTx, nil)
	tm.On("Commit", mockTx).Return(nil)

	var seen tx.Tx
	err := tx.Run(context.Background(), tm, func(ctx context.Context) error {
		seen, _ = tx.TxFromContext(ctx)
		return nil
	})

	require.NoError(t, err)
	assert.Same(t, mockTx, seen)
	tm.AssertExpectations(t)
	tm.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestRun_RollsBackOnError(t *testing.T) {
	mockTx := new(test.MockTx)
	tm := new(test.MockTxManager)
	tm.On("Begin", mock.Anything, mock.Anything).Return(mockTx, nil)
	tm.On("Rollback", mockTx).Return(nil)

	boom := errors.New("boom")
	err := tx.Run(context.Background(), tm, func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	tm.AssertExpectations(t)
	tm.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestRun_RollbackFailureIsJoined(t *testing.T) {
	mockTx := new(test.MockTx)
	tm := new(test.MockTxManager)
	tm.On("Begin", mock.Anything, mock.Anything).Return(mockTx, nil)
	tm.On("Rollback", mockTx).Return(errors.New("connection lost"))

	boom := errors.New("boom")
	err := tx.Run(context.Background(), tm, func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rollback failed: connection lost")
}

func TestRun_RollsBackOnPanic(t *testing.T) {
	mockTx := new(test.MockTx)
	tm := new(test.MockTxManager)
	tm.On("Begin", mock.Anything, mock.Anything).Return(mockTx, nil)
	tm.On("Rollback", mockTx).Return(nil)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = tx.Run(context.Background(), tm, func(ctx context.Context) error { panic("kaboom") })
	})
	tm.AssertExpectations(t)
}

func TestRun_BeginFailure(t *testing.T) {
	tm := new(test.MockTxManager)
	tm.On("Begin", mock.Anything, mock.Anything).Return(nil, errors.New("pool exhausted"))

	called := false
	err := tx.Run(context.Background(), tm, func(ctx context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "pool exhausted")
}

func TestRun_JoinsExistingTransaction(t *testing.T) {
	outer := new(test.MockTx)
	tm := new(test.MockTxManager)

	ctx := tx.WithTx(context.Background(), outer)
	err := tx.Run(ctx, tm, func(ctx context.Context) error {
		got, _ := tx.TxFromContext(ctx)
		assert.Same(t, outer, got)
		return nil
	})

	require.NoError(t, err)
	tm.AssertNotCalled(t, "Begin", mock.Anything, mock.Anything)
}
