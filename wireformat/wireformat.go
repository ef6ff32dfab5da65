// Package wireformat defines the JSON wire format structures for calls that
// arrive from outside the process (JSON hosts and WASM guests). These types
// must remain stable and backward compatible as they define the call ABI.
package wireformat

import (
	"time"

	"github.com/reglet-dev/hostcall/domain/entities"
)

// ContextWireFormat is the JSON wire format for context.Context propagation.
type ContextWireFormat struct {
	Deadline  *time.Time `json:"deadline,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	TimeoutMs int64      `json:"timeout_ms,omitempty"`
	Canceled  bool       `json:"canceled,omitempty"`
}

// CallRequestWire is the JSON wire format for one invocation from a host.
type CallRequestWire struct {
	Name    string            `json:"name"`
	Args    []entities.Value  `json:"args"`
	Context ContextWireFormat `json:"context"`
}

// ToCallRequest returns the domain request carried by w.
func (w CallRequestWire) ToCallRequest() entities.CallRequest {
	return entities.CallRequest{Name: w.Name, Args: w.Args}
}

// CallResponseWire is the JSON wire format of a successful invocation.
// Failed invocations are answered with an error response instead.
type CallResponseWire struct {
	Value     entities.Value `json:"value"`
	RequestID string         `json:"request_id,omitempty"`
}
