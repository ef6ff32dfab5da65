// Package errors provides the error kinds raised at the marshaller boundary.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/hostcall/domain/entities"
)

// Sentinel errors matched by the concrete error types through errors.Is.
var (
	ErrUnknownOperation = stdErrors.New("unknown operation")
	ErrArityMismatch    = stdErrors.New("arity mismatch")
	ErrTypeMismatch     = stdErrors.New("type mismatch")
	ErrNativeFailure    = stdErrors.New("native operation failed")
	ErrAccessDenied     = stdErrors.New("access denied")
	// ErrCanceled matches every CanceledError; ErrTimeout only those whose
	// deadline passed.
	ErrCanceled = stdErrors.New("call canceled")
	ErrTimeout  = stdErrors.New("call timed out")
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail. New error types only need to implement this
// interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	// If the error is already a *ErrorDetail (entity), use it directly.
	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	// Generic error - categorize as internal
	return entities.NewErrorDetail("internal", err.Error())
}

// UnknownOperationError is raised when no Signature is registered under Name.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %q", e.Name)
}

// Is reports whether target is ErrUnknownOperation.
func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

// ToErrorDetail implements DetailedError.
func (e *UnknownOperationError) ToErrorDetail() *entities.ErrorDetail {
	detail := entities.NewErrorDetail("unknown_operation", e.Error()).WithCode("NOT_FOUND")
	detail.IsNotFound = true
	return detail
}

// ArityMismatchError is raised when a call supplies too few arguments, or too
// many for a signature that does not tolerate excess.
type ArityMismatchError struct {
	Operation string
	Expected  int
	Actual    int
}

func (e *ArityMismatchError) Error() string {
	if e.Actual < e.Expected {
		return fmt.Sprintf("%s: too few arguments, expected %d, received %d", e.Operation, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: too many arguments, expected %d, received %d", e.Operation, e.Expected, e.Actual)
}

// Is reports whether target is ErrArityMismatch.
func (e *ArityMismatchError) Is(target error) bool {
	return target == ErrArityMismatch
}

// ToErrorDetail implements DetailedError.
func (e *ArityMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("arity", e.Error()).
		WithCode("ARITY_MISMATCH").
		WithDetails(map[string]any{"expected": e.Expected, "actual": e.Actual})
}

// TypeMismatchError is raised for the first argument whose kind does not match
// its declared slot.
type TypeMismatchError struct {
	Operation string
	Index     int
	Expected  entities.ParamKind
	Actual    entities.ValueKind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: argument %d: %s expected, got %s", e.Operation, e.Index, e.Expected, e.Actual)
}

// Is reports whether target is ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// ToErrorDetail implements DetailedError.
func (e *TypeMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("type", e.Error()).
		WithCode("TYPE_MISMATCH").
		WithDetails(map[string]any{
			"index":    e.Index,
			"expected": e.Expected.String(),
			"actual":   e.Actual.String(),
		})
}

// NativeError wraps a failure reported by the native operation itself,
// including recovered panics (Stack is set in that case).
type NativeError struct {
	Err       error
	Operation string
	Stack     []byte
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *NativeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNativeFailure.
func (e *NativeError) Is(target error) bool {
	return target == ErrNativeFailure
}

// ToErrorDetail implements DetailedError.
func (e *NativeError) ToErrorDetail() *entities.ErrorDetail {
	detail := entities.NewErrorDetail("native", e.Error()).WithCode("NATIVE_ERROR")
	if len(e.Stack) > 0 {
		detail.Type = "panic"
		detail.Stack = e.Stack
	}
	if e.Err != nil {
		var inner DetailedError
		if stdErrors.As(e.Err, &inner) {
			detail.Wrapped = inner.ToErrorDetail()
		}
	}
	return detail
}

// CanceledError is raised when the caller's context ends before the native
// operation starts, or when the operation gives up because of it.
type CanceledError struct {
	Err       error
	Operation string
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s: call canceled: %v", e.Operation, e.Err)
}

func (e *CanceledError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCanceled, or ErrTimeout for an exceeded
// deadline.
func (e *CanceledError) Is(target error) bool {
	return target == ErrCanceled || (target == ErrTimeout && e.Timeout())
}

// Timeout reports whether the context deadline was exceeded.
func (e *CanceledError) Timeout() bool {
	return stdErrors.Is(e.Err, context.DeadlineExceeded)
}

// ToErrorDetail implements DetailedError.
func (e *CanceledError) ToErrorDetail() *entities.ErrorDetail {
	if e.Timeout() {
		detail := entities.NewErrorDetail("timeout", e.Error()).WithCode("TIMEOUT")
		detail.IsTimeout = true
		return detail
	}
	return entities.NewErrorDetail("canceled", e.Error()).WithCode("CANCELED")
}

// AccessDeniedError is raised when a caller is not permitted to invoke an
// operation.
type AccessDeniedError struct {
	Caller    string
	Operation string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %q may not invoke %q", e.Caller, e.Operation)
}

// Is reports whether target is ErrAccessDenied.
func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// ToErrorDetail implements DetailedError.
func (e *AccessDeniedError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("access_denied", e.Error()).
		WithCode("FORBIDDEN").
		WithDetails(map[string]any{"caller": e.Caller, "operation": e.Operation})
}

// ConfigError represents an invalid signature or marshaller definition.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("config", e.Error()).WithCode(e.Field)
}

// WireFormatError represents a wire format encoding/decoding error.
type WireFormatError struct {
	Err       error
	Operation string
	Type      string
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("wire format %s failed for %s: %v", e.Operation, e.Type, e.Err)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *WireFormatError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("validation", e.Error()).WithCode("wire_format")
}
