package entities

import "strings"

// ErrorDetail is the host-visible description of a failed call. Every
// marshaller error converts to one, and a CallResult carries it in place of a
// Value.
//
// Type names the failure category: "unknown_operation", "arity", "type",
// "native", "panic", "canceled", "timeout", "access_denied", "config",
// "validation" or "internal". Code is the matching wire code, such as
// "TYPE_MISMATCH".
type ErrorDetail struct {
	// Wrapped is the structured cause, when the cause has one.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Details holds call context such as the offending argument index.
	Details map[string]any `json:"details,omitempty"`

	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`

	// Stack is set for recovered panics.
	Stack []byte `json:"stack,omitempty"`

	IsTimeout  bool `json:"is_timeout,omitempty"`
	IsNotFound bool `json:"is_not_found,omitempty"`
}

// NewErrorDetail starts an ErrorDetail of the given category.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}

// WithCode sets the wire code on e and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// WithDetails sets the call context on e and returns e.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// Error renders "type: message [CODE]: cause". The "internal" type is left
// out, as are empty parts.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Type != "" && e.Type != "internal" {
		b.WriteString(e.Type)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Code != "" {
		b.WriteString(" [" + e.Code + "]")
	}
	if e.Wrapped != nil {
		b.WriteString(": " + e.Wrapped.Error())
	}
	return b.String()
}
