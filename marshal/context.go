package marshal

import (
	"context"

	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/reglet-dev/hostcall/internal/callctx"
)

// CallContext wraps a standard context.Context with call-specific helpers.
// It provides access to the invoked operation and allows middleware to store
// request-scoped values without polluting the standard context.
type CallContext interface {
	context.Context

	// Operation returns the name of the operation being invoked.
	Operation() string

	// Signature returns the signature the call is validated against.
	Signature() entities.Signature

	// RequestID returns the identifier correlating this call in logs.
	RequestID() string

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing CallContext for performance.
	SetValue(key, value any)

	// GetValue retrieves a request-scoped value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

// callContext is the concrete implementation of CallContext.
// A new one is created for every invocation so no state leaks between calls.
type callContext struct {
	context.Context
	values    map[any]any
	sig       entities.Signature
	requestID string
}

// NewCallContext creates a new CallContext wrapping the given context.
func NewCallContext(ctx context.Context, sig entities.Signature, requestID string) CallContext {
	return &callContext{
		Context:   ctx,
		sig:       sig,
		requestID: requestID,
		values:    make(map[any]any),
	}
}

func (c *callContext) Operation() string {
	return c.sig.Name
}

func (c *callContext) Signature() entities.Signature {
	return c.sig
}

func (c *callContext) RequestID() string {
	return c.requestID
}

func (c *callContext) SetValue(key, value any) {
	c.values[key] = value
}

func (c *callContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// CallContextFrom extracts a CallContext from a context.Context, if present.
func CallContextFrom(ctx context.Context) (CallContext, bool) {
	cc, ok := ctx.(CallContext)
	return cc, ok
}

// WithRequestID attaches a caller-chosen request ID to ctx. Invoke uses it
// instead of generating one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return callctx.WithRequestID(ctx, id)
}

// RequestIDFrom returns the request ID attached by WithRequestID.
func RequestIDFrom(ctx context.Context) (string, bool) {
	return callctx.RequestID(ctx)
}
