//go:build wasip1

package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/hostcall/internal/abi"
)

// Define the host function signature for logging messages.
// This matches the custom handler the host executor registers.
//
//go:wasmimport hostcall log_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_log_message(messagePacked uint64)

// GuestHandler implements slog.Handler inside a WASM guest by forwarding
// records to the host's log_message function.
type GuestHandler struct {
	attrs []slog.Attr
	level slog.Level
}

// NewGuestHandler returns a handler that forwards records at or above level.
func NewGuestHandler(level slog.Level) *GuestHandler {
	return &GuestHandler{level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *GuestHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *GuestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

// WithGroup is a no-op: the wire format is flat.
func (h *GuestHandler) WithGroup(string) slog.Handler {
	return h
}

// Handle serializes a slog.Record and sends it to the host via a host function.
func (h *GuestHandler) Handle(ctx context.Context, record slog.Record) error {
	if len(h.attrs) > 0 {
		record = record.Clone()
		record.AddAttrs(h.attrs...)
	}

	payload, err := EncodeRecord(ctx, record)
	if err != nil {
		// Fall back to stdout, which WASI forwards to the host.
		fmt.Printf("hostcall: failed to marshal log message for host: %v, original: %s\n", err, record.Message)
		return nil
	}

	packed := abi.PtrFromBytes(payload)
	host_log_message(packed)
	abi.DeallocatePacked(packed)
	return nil
}
