package exception_test

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	original := errors.New("disk full")
	err := exception.NewAppError("repository", "failed to save product", nil, original)

	assert.Equal(t, "[repository] failed to save product: disk full", err.Error())
	assert.Same(t, original, errors.Unwrap(err))
	assert.True(t, exception.IsAppError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, exception.IsAppError(original))
}

func TestAppError_KindMatchesWithErrorsIs(t *testing.T) {
	err := exception.NewAppError("service", "product missing", exception.ErrNotFound, nil)

	assert.ErrorIs(t, err, exception.ErrNotFound)
	assert.NotErrorIs(t, err, exception.ErrConflict)
	assert.Equal(t, "[service] product missing", err.Error())
}

func TestNewAppErrorf_TrailingErrorIsWrapped(t *testing.T) {
	err := exception.NewAppErrorf("repository", exception.ErrNotFound, "product %s not found", "abc", sql.ErrNoRows)

	assert.Equal(t, "product abc not found", err.Message)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, err, exception.ErrNotFound)
}

func TestNewAppErrorf_ErrorConsumedByVerb(t *testing.T) {
	cause := errors.New("boom")
	err := exception.NewAppErrorf("config", nil, "load failed: %v", cause)

	assert.Equal(t, "load failed: boom", err.Message)
	assert.Nil(t, err.OriginalErr)
}

func TestOptimisticLockingFailure(t *testing.T) {
	err := exception.NewOptimisticLockingFailureException("repository", "version mismatch", nil)

	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.True(t, exception.IsErrorOfType(err, exception.OptimisticLockingFailureException))
	assert.Equal(t, http.StatusConflict, exception.StatusCode(err))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", exception.NewAppError("m", "x", exception.ErrNotFound, nil), http.StatusNotFound},
		{"invalid", exception.NewAppError("m", "x", exception.ErrInvalidArgument, nil), http.StatusBadRequest},
		{"conflict wrapped", fmt.Errorf("outer: %w", exception.NewAppError("m", "x", exception.ErrConflict, nil)), http.StatusConflict},
		{"no rows", sql.ErrNoRows, http.StatusNotFound},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exception.StatusCode(tt.err))
		})
	}
}

func TestIsErrorOfType_ByMessageAndTypeName(t *testing.T) {
	err := fmt.Errorf("wrapping: %w", exception.NewAppError("m", "connection refused", nil, nil))

	assert.True(t, exception.IsErrorOfType(err, "connection refused"))
	assert.True(t, exception.IsErrorOfType(err, "exception.AppError"))
	assert.False(t, exception.IsErrorOfType(err, "timeout"))
	assert.False(t, exception.IsErrorOfType(nil, "anything"))
}

func TestRegisterErrorType_Panics(t *testing.T) {
	assert.Panics(t, func() { exception.RegisterErrorType("", errors.New("x"), 0) })
	assert.Panics(t, func() { exception.RegisterErrorType("nil", nil, 0) })
	assert.True(t, exception.IsErrorTypeRegistered("NotFound"))
	assert.False(t, exception.IsErrorTypeRegistered("NoSuchKind"))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "clean", exception.ExtractErrorMessage(exception.NewAppError("m", "clean", nil, errors.New("noisy"))))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}
