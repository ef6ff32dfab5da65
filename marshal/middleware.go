package marshal

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/reglet-dev/hostcall/domain/entities"
	domainerrors "github.com/reglet-dev/hostcall/domain/errors"
)

// Middleware is a function that wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next Handler) Handler {
//	    return func(ctx context.Context, args []entities.Value) (entities.Value, error) {
//	        start := time.Now()
//	        defer func() { observe(time.Since(start)) }()
//	        return next(ctx, args)
//	    }
//	}
type Middleware func(next Handler) Handler

// Option is a functional option for configuring a Marshaller.
type Option func(*builder)

// PanicRecoveryMiddleware returns a middleware that catches panics raised by
// native operations and converts them to a NativeError instead of crashing
// the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args []entities.Value) (v entities.Value, err error) {
			defer func() {
				if r := recover(); r != nil {
					op := "unknown"
					if cc, ok := CallContextFrom(ctx); ok {
						op = cc.Operation()
					}
					v = entities.Value{}
					err = &domainerrors.NativeError{
						Operation: op,
						Err:       panicError(r),
						Stack:     debug.Stack(),
					}
				}
			}()
			return next(ctx, args)
		}
	}
}

func panicError(r any) error {
	switch x := r.(type) {
	case error:
		return fmt.Errorf("panic: %w", x)
	case string:
		return fmt.Errorf("panic: %s", x)
	default:
		return fmt.Errorf("panic: %v", x)
	}
}

// LoggingMiddleware returns a middleware that logs every invocation with its
// operation name, request ID and duration. A nil logger uses slog.Default().
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args []entities.Value) (entities.Value, error) {
			l := logger
			if l == nil {
				l = slog.Default()
			}
			op, requestID := "unknown", ""
			if cc, ok := CallContextFrom(ctx); ok {
				op, requestID = cc.Operation(), cc.RequestID()
			}

			l.DebugContext(ctx, "invoking operation", "operation", op, "request_id", requestID, "args", len(args))
			start := time.Now()
			v, err := next(ctx, args)
			if err != nil {
				l.WarnContext(ctx, "operation failed",
					"operation", op,
					"request_id", requestID,
					"duration", time.Since(start),
					"error", err,
				)
				return v, err
			}
			l.DebugContext(ctx, "operation completed",
				"operation", op,
				"request_id", requestID,
				"duration", time.Since(start),
				"result", v,
			)
			return v, nil
		}
	}
}
