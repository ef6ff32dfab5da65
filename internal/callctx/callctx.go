// Package callctx converts between context.Context and its wire form, and
// carries the per-call request ID.
package callctx

import (
	"context"
	"time"

	"github.com/reglet-dev/hostcall/wireformat"
)

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID attached to ctx, if any.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ContextToWire converts a context.Context to ContextWireFormat for sending
// across the host boundary.
func ContextToWire(ctx context.Context) wireformat.ContextWireFormat {
	wire := wireformat.ContextWireFormat{}

	if deadline, ok := ctx.Deadline(); ok {
		wire.Deadline = &deadline
		timeout := time.Until(deadline)
		if timeout > 0 {
			wire.TimeoutMs = timeout.Milliseconds()
		}
	}

	select {
	case <-ctx.Done():
		wire.Canceled = true
	default:
		wire.Canceled = false
	}

	if id, ok := RequestID(ctx); ok {
		wire.RequestID = id
	}

	return wire
}

// WireToContext derives a context from parent that honors the deadline,
// timeout, cancellation and request ID carried by wire. The caller must call
// the returned CancelFunc.
func WireToContext(parent context.Context, wire wireformat.ContextWireFormat) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	ctx := parent

	var cancel context.CancelFunc
	switch {
	case wire.Deadline != nil:
		ctx, cancel = context.WithDeadline(ctx, *wire.Deadline)
	case wire.TimeoutMs > 0:
		ctx, cancel = context.WithTimeout(ctx, time.Duration(wire.TimeoutMs)*time.Millisecond)
	default:
		ctx, cancel = context.WithCancel(ctx)
	}

	if wire.RequestID != "" {
		ctx = WithRequestID(ctx, wire.RequestID)
	}

	if wire.Canceled {
		cancel()
	}

	return ctx, cancel
}
