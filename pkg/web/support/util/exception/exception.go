// Package exception provides the error types shared by the storefront web framework.
// Errors carry the module where they occurred and a kind that the HTTP layer
// maps onto a status code.
package exception

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
)

// Sentinel kinds. An AppError matches one of these through errors.Is.
var (
	ErrNotFound                 = errors.New("not found")
	ErrConflict                 = errors.New("conflict")
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrUnavailable              = errors.New("unavailable")
	ErrOptimisticLockingFailure = errors.New(OptimisticLockingFailureException)
)

// OptimisticLockingFailureException is the registered name of ErrOptimisticLockingFailure.
const OptimisticLockingFailureException = "OptimisticLockingFailureException"

type registeredType struct {
	prototype error
	status    int
}

// errorRegistry maps error names to prototypes compared with errors.Is.
var (
	errorRegistry = make(map[string]registeredType)
	registryMutex sync.RWMutex
)

// RegisterErrorType registers an error prototype under name together with the
// HTTP status it maps to. A status of 0 leaves the error unmapped.
// It panics if name is empty or prototype is nil.
func RegisterErrorType(name string, prototype error, status int) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	errorRegistry[name] = registeredType{prototype: prototype, status: status}
}

// IsErrorTypeRegistered checks if the specified error type name is registered.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// AppError is the error type returned by framework and application code.
type AppError struct {
	// Module indicates where the error occurred (e.g., "apps", "config", "productmanagement.Service").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// Kind is one of the sentinel kinds, or nil for an internal error.
	Kind error
}

// NewAppError creates a new AppError.
func NewAppError(module, message string, kind error, originalErr error) *AppError {
	return &AppError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		Kind:        kind,
	}
}

// NewAppErrorf creates a new AppError using a format string.
// A trailing error argument is treated as the wrapped error, not a format operand.
//
// Example:
//
//	NewAppErrorf("repository", exception.ErrNotFound, "product %s not found", id, sql.ErrNoRows)
func NewAppErrorf(module string, kind error, format string, a ...interface{}) *AppError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok && strings.Count(format, "%")-2*strings.Count(format, "%%") < len(args) {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return NewAppError(module, fmt.Sprintf(format, args...), kind, originalErr)
}

// NewOptimisticLockingFailureException creates an AppError indicating an optimistic locking failure.
func NewOptimisticLockingFailureException(module, message string, originalErr error) *AppError {
	return NewAppError(module, message, ErrOptimisticLockingFailure, originalErr)
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *AppError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is the kind of this error.
func (e *AppError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// IsAppError determines if err is, or wraps, an AppError.
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// IsOptimisticLockingFailure determines if an error indicates an optimistic locking failure.
func IsOptimisticLockingFailure(err error) bool {
	return errors.Is(err, ErrOptimisticLockingFailure)
}

// IsErrorOfType checks if an error matches a registered name, a substring of
// any message in its chain, or the type name of any error in its chain.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	target, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok && errors.Is(err, target.prototype) {
		return true
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		if strings.Contains(current.Error(), errorTypeName) {
			return true
		}
		errType := reflect.TypeOf(current)
		if errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName) {
			return true
		}
	}
	return false
}

// StatusCode maps err onto an HTTP status using the registered error types.
// Unmapped errors are 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	best := 0
	for _, rt := range errorRegistry {
		if rt.status == 0 || !errors.Is(err, rt.prototype) {
			continue
		}
		// Prefer the most specific (lowest) 4xx over a generic 5xx when several kinds match.
		if best == 0 || rt.status < best {
			best = rt.status
		}
	}
	if best == 0 {
		return http.StatusInternalServerError
	}
	return best
}

// ExtractErrorMessage returns the Message of an AppError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func init() {
	RegisterErrorType("NotFound", ErrNotFound, http.StatusNotFound)
	RegisterErrorType("Conflict", ErrConflict, http.StatusConflict)
	RegisterErrorType("InvalidArgument", ErrInvalidArgument, http.StatusBadRequest)
	RegisterErrorType("Unavailable", ErrUnavailable, http.StatusServiceUnavailable)
	RegisterErrorType(OptimisticLockingFailureException, ErrOptimisticLockingFailure, http.StatusConflict)

	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded, http.StatusGatewayTimeout)
	RegisterErrorType("context.Canceled", context.Canceled, 0)
	RegisterErrorType("sql.ErrNoRows", sql.ErrNoRows, http.StatusNotFound)
}
