package marshal

import (
	"context"
	"encoding/json"
	"errors"

	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
)

// ErrorResponse represents a structured error returned as JSON to hosts.
// This ensures hosts receive consistent, parseable errors they can raise as
// exceptions on their side.
type ErrorResponse struct {
	// Details carries structured context such as the mismatching argument index.
	Details map[string]any `json:"details,omitempty"`

	// Error is a machine-readable error type identifier (e.g., "TYPE_MISMATCH", "INTERNAL_ERROR").
	Error string `json:"error"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// RequestID correlates the failure with host logs.
	RequestID string `json:"request_id,omitempty"`

	// Code is a numeric error code (e.g., 400, 500).
	Code int `json:"code"`
}

// ToJSON serializes the ErrorResponse to JSON bytes.
// Returns nil if serialization fails (which should never happen for this simple type).
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewValidationError creates an error response for bad input (e.g., malformed JSON).
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Code:    400,
	}
}

// NewNotFoundError creates an error response for unknown operation names.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{
		Error:   "NOT_FOUND",
		Message: "unknown operation: " + name,
		Code:    404,
	}
}

// NewInternalError creates an error response for unexpected failures.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{
		Error:   "INTERNAL_ERROR",
		Message: message,
		Code:    500,
	}
}

// NewErrorResponse maps an Invoke error onto its wire representation.
func NewErrorResponse(err error) ErrorResponse {
	var (
		unknown  *domainerrors.UnknownOperationError
		arity    *domainerrors.ArityMismatchError
		typ      *domainerrors.TypeMismatchError
		canceled *domainerrors.CanceledError
		native   *domainerrors.NativeError
		wire     *domainerrors.WireFormatError
		denied   *domainerrors.AccessDeniedError
	)

	detail := domainerrors.ToErrorDetail(err)
	resp := ErrorResponse{Message: err.Error(), Details: detail.Details}

	switch {
	case errors.As(err, &unknown):
		resp.Error, resp.Code = "NOT_FOUND", 404
	case errors.As(err, &arity):
		resp.Error, resp.Code = "ARITY_MISMATCH", 400
	case errors.As(err, &typ):
		resp.Error, resp.Code = "TYPE_MISMATCH", 400
	case errors.As(err, &wire):
		resp.Error, resp.Code = "VALIDATION_ERROR", 400
	case errors.As(err, &denied):
		resp.Error, resp.Code = "FORBIDDEN", 403
	case errors.As(err, &canceled):
		resp.Error, resp.Code = "CANCELED", 499
		if canceled.Timeout() {
			resp.Error, resp.Code = "TIMEOUT", 504
		}
	case errors.As(err, &native):
		resp.Error, resp.Code = "NATIVE_ERROR", 500
	default:
		resp.Error, resp.Code = "INTERNAL_ERROR", 500
	}
	return resp
}

// RemoteError is an ErrorResponse received over a byte transport, usable as
// a Go error. errors.Is matches it against the domain sentinels; CANCELED and
// TIMEOUT responses also match context.Canceled and context.DeadlineExceeded.
type RemoteError struct {
	Response ErrorResponse
}

func (e *RemoteError) Error() string {
	return e.Response.Error + ": " + e.Response.Message
}

// Is reports whether the remote failure corresponds to target.
func (e *RemoteError) Is(target error) bool {
	switch e.Response.Error {
	case "NOT_FOUND":
		return target == domainerrors.ErrUnknownOperation
	case "ARITY_MISMATCH":
		return target == domainerrors.ErrArityMismatch
	case "TYPE_MISMATCH":
		return target == domainerrors.ErrTypeMismatch
	case "NATIVE_ERROR":
		return target == domainerrors.ErrNativeFailure
	case "FORBIDDEN":
		return target == domainerrors.ErrAccessDenied
	case "CANCELED":
		return target == domainerrors.ErrCanceled || target == context.Canceled
	case "TIMEOUT":
		return target == domainerrors.ErrCanceled || target == domainerrors.ErrTimeout ||
			target == context.DeadlineExceeded
	}
	return false
}

// Err wraps e as a *RemoteError.
func (e ErrorResponse) Err() error {
	return &RemoteError{Response: e}
}
