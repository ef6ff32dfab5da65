package wazero

import (
	"context"
	"encoding/json"
	"path"

	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
	"github.com/reglet-dev/hostcall/marshal"
)

// AccessPolicy validates that a guest may invoke an operation.
type AccessPolicy interface {
	// Allow returns an error if guest may not invoke operation.
	Allow(guest, operation string) error
}

// AccessPolicyFunc adapts a plain function to AccessPolicy.
type AccessPolicyFunc func(guest, operation string) error

// Allow implements AccessPolicy.
func (f AccessPolicyFunc) Allow(guest, operation string) error {
	return f(guest, operation)
}

// AllowList grants operations per guest module name. Keys and patterns use
// path.Match syntax, so "*" grants everything.
//
//	wazero.AllowList{
//	    "report-*": {"stringTest", "noArgTest"},
//	    "admin":    {"*"},
//	}
type AllowList map[string][]string

// Allow implements AccessPolicy.
func (l AllowList) Allow(guest, operation string) error {
	for guestPattern, ops := range l {
		if ok, _ := path.Match(guestPattern, guest); !ok {
			continue
		}
		for _, opPattern := range ops {
			if ok, _ := path.Match(opPattern, operation); ok {
				return nil
			}
		}
	}
	return &domainerrors.AccessDeniedError{Caller: guest, Operation: operation}
}

// guard wraps h with a policy check. For the generic export the operation
// name is read from the payload; undecodable payloads are left to h, which
// reports them.
func guard(policy AccessPolicy, operation string, h marshal.ByteHandler) marshal.ByteHandler {
	if policy == nil {
		return h
	}
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		op := operation
		if op == "" {
			var probe struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(payload, &probe); err != nil {
				return h(ctx, payload)
			}
			op = probe.Name
		}

		guest, _ := GuestNameFromContext(ctx)
		if err := policy.Allow(guest, op); err != nil {
			resp := marshal.NewErrorResponse(err)
			if id, ok := marshal.RequestIDFrom(ctx); ok {
				resp.RequestID = id
			}
			return resp.ToJSON(), nil
		}
		return h(ctx, payload)
	}
}
