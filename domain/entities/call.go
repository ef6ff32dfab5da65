package entities

import (
	"time"
)

// CallRequest is one host invocation: an operation name and its arguments.
type CallRequest struct {
	Name string  `json:"name" yaml:"name"`
	Args []Value `json:"args" yaml:"args"`
}

// NewCallRequest builds a CallRequest.
func NewCallRequest(name string, args ...Value) CallRequest {
	return CallRequest{Name: name, Args: args}
}

// CallStatus represents the outcome of one invocation.
type CallStatus string

const (
	// CallStatusSuccess indicates the native operation ran and returned a value.
	CallStatusSuccess CallStatus = "success"

	// CallStatusError indicates the call was rejected or the operation failed.
	CallStatusError CallStatus = "error"
)

// CallResult is the outcome of one invocation: either Value or Error is set.
type CallResult struct {
	// Metadata contains timing information for the call, if recorded.
	Metadata *CallMetadata `json:"metadata,omitempty"`

	// Error contains structured error information if Status is Error.
	Error *ErrorDetail `json:"error,omitempty"`

	// Name echoes the invoked operation.
	Name string `json:"name"`

	// Status indicates whether the call succeeded.
	Status CallStatus `json:"status"`

	// Value is the converted return value on success.
	Value Value `json:"value"`
}

// CallSuccess creates a successful CallResult.
func CallSuccess(name string, v Value) CallResult {
	return CallResult{Name: name, Status: CallStatusSuccess, Value: v}
}

// CallError creates a failed CallResult with the given error details.
func CallError(name string, err *ErrorDetail) CallResult {
	return CallResult{Name: name, Status: CallStatusError, Error: err}
}

// WithMetadata returns a copy of the CallResult with the given metadata attached.
func (r CallResult) WithMetadata(m *CallMetadata) CallResult {
	r.Metadata = m
	return r
}

// IsSuccess returns true if the result indicates success.
func (r CallResult) IsSuccess() bool {
	return r.Status == CallStatusSuccess
}

// IsError returns true if the result indicates an error.
func (r CallResult) IsError() bool {
	return r.Status == CallStatusError
}

// CallMetadata contains execution metadata for one invocation.
type CallMetadata struct {
	// StartTime is when validation of the call began.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the result was converted back.
	EndTime time.Time `json:"end_time"`

	// RequestID correlates the call with log records.
	RequestID string `json:"request_id,omitempty"`

	// Duration is the total call time.
	Duration time.Duration `json:"duration_ns"`
}

// NewCallMetadata creates a new CallMetadata with the given start and end times.
func NewCallMetadata(start, end time.Time) *CallMetadata {
	return &CallMetadata{
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
}

// WithRequestID returns the CallMetadata with the request ID set.
func (m *CallMetadata) WithRequestID(id string) *CallMetadata {
	m.RequestID = id
	return m
}
