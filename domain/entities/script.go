package entities

import "fmt"

// Script describes one object construction followed by calls against it.
type Script struct {
	// Constructor holds the arguments the object is constructed with.
	Constructor []Value

	// Calls are issued in order unless Parallel is set.
	Calls []ScriptCall

	// Parallel bounds concurrent calls. Zero runs the calls sequentially.
	Parallel int
}

// Requests returns the call requests of s in order.
func (s Script) Requests() []CallRequest {
	reqs := make([]CallRequest, len(s.Calls))
	for i, c := range s.Calls {
		reqs[i] = c.Request
	}
	return reqs
}

// ScriptCall is one call of a Script with an optional expectation.
type ScriptCall struct {
	Expect  *Expectation
	Request CallRequest
}

// Expectation is the outcome a script expects from a call. At most one of
// Value and Error is set; an empty Expectation accepts any success.
type Expectation struct {
	// Value is the expected result, compared with Value.Equal.
	Value *Value

	// Error is the expected error code, such as "TYPE_MISMATCH".
	Error string
}

// Check returns an error describing how r differs from e.
func (e Expectation) Check(r CallResult) error {
	if e.Error != "" {
		if !r.IsError() {
			return fmt.Errorf("expected %s, got value %s", e.Error, r.Value)
		}
		if r.Error.Code != e.Error {
			return fmt.Errorf("expected %s, got %s", e.Error, r.Error.Code)
		}
		return nil
	}

	if r.IsError() {
		return fmt.Errorf("expected success, got %s", r.Error.Error())
	}
	if e.Value != nil && !e.Value.Equal(r.Value) {
		return fmt.Errorf("expected %s, got %s", *e.Value, r.Value)
	}
	return nil
}
