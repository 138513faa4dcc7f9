package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tigerroll/storefront/pkg/web/support/util/exception"
	"github.com/tigerroll/storefront/pkg/web/support/util/logger"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to encode JSON response: %v", err)
	}
}

// WriteError maps err onto a status with exception.StatusCode and writes an ErrorResponse.
// Messages of internal errors are not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := exception.StatusCode(err)
	message := exception.ExtractErrorMessage(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Errorf("Request %s %s failed: %v", r.Method, r.URL.Path, err)
		message = "An unexpected error occurred."
	}
	WriteJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// DecodeJSON decodes the request body into v. Unknown fields, trailing data,
// empty and oversized bodies are rejected with exception.ErrInvalidArgument.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return exception.NewAppError("server", "request body is required", exception.ErrInvalidArgument, nil)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return exception.NewAppError("server", "request body is required", exception.ErrInvalidArgument, err)
		case errors.As(err, &maxErr):
			return exception.NewAppErrorf("server", exception.ErrInvalidArgument, "request body exceeds %d bytes", maxErr.Limit, err)
		default:
			return exception.NewAppError("server", fmt.Sprintf("malformed JSON body: %v", err), exception.ErrInvalidArgument, err)
		}
	}
	if dec.More() {
		return exception.NewAppError("server", "request body must contain a single JSON value", exception.ErrInvalidArgument, nil)
	}
	return nil
}
