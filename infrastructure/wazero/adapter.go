package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/hostcall/marshal"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// CallExport is the name of the generic entry point. Its payload names the
// operation to invoke.
const CallExport = "call"

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Policy decides which guest may invoke which operation. Nil allows all.
	Policy AccessPolicy

	// ModuleName is the host module name (default: "hostcall").
	ModuleName string

	// CustomHandlers allows adding additional wazero-specific handlers that
	// don't fit the standard ByteHandler pattern (e.g., log_message with no return).
	CustomHandlers []CustomHandler

	// MaxRequestSize limits the size of incoming requests from guest memory.
	// Default is 1MB.
	MaxRequestSize uint32

	// ExportOperations additionally exports every operation under its own
	// name, so guests can import them individually.
	ExportOperations bool
}

// CustomHandler represents a custom wazero handler that doesn't use the standard
// packed i64 request/response pattern.
type CustomHandler struct {
	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// Name is the exported function name.
	Name string

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "hostcall").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// WithOperationExports exports each operation under its own name in
// addition to CallExport.
func WithOperationExports() AdapterOption {
	return func(c *AdapterConfig) {
		c.ExportOperations = true
	}
}

// WithAccessPolicy restricts which guests may invoke which operations.
func WithAccessPolicy(p AccessPolicy) AdapterOption {
	return func(c *AdapterConfig) {
		c.Policy = p
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:     "hostcall",
		MaxRequestSize: marshal.DefaultMaxRequestSize,
	}
}

// RegisterWithRuntime exposes m to guests of runtime. It instantiates a host
// module with the configured name (default: "hostcall") exporting CallExport
// and, with WithOperationExports, one function per operation.
//
// Each exported function:
//   - Reads the request from guest memory using the packed i64 ptr+len format
//   - Invokes the marshaller with the JSON call payload
//   - Allocates response memory in the guest using the "allocate" export
//   - Writes the JSON response to guest memory
//   - Returns packed i64 ptr+len of the response
//
// Rejected calls are answered in-band with an error response, never by
// trapping the guest.
//
// Example:
//
//	_, m, _ := simple.NewMarshaller(ctorArgs)
//	err := wazero.RegisterWithRuntime(ctx, runtime, m,
//	    wazero.WithModuleName("hostcall"),
//	)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, m *marshal.Marshaller, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	exportByteHandler(builder, CallExport, guard(cfg.Policy, "", m.ByteHandler()), cfg.MaxRequestSize)

	if cfg.ExportOperations {
		for _, name := range m.Names() {
			if name == CallExport {
				return fmt.Errorf("operation %q collides with the generic %q export", name, CallExport)
			}
			exportByteHandler(builder, name, guard(cfg.Policy, name, m.OperationHandler(name)), cfg.MaxRequestSize)
		}
	}

	// Register any custom handlers
	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	// Instantiate the host module
	_, err := builder.Instantiate(ctx)
	return err
}

func exportByteHandler(builder wazero.HostModuleBuilder, export string, h marshal.ByteHandler, maxRequestSize uint32) {
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			handleGuestCall(ctx, mod, stack, h, export, maxRequestSize)
		}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export(export)
}

// handleGuestCall handles a host function call from WASM.
// It reads the request from guest memory, invokes the handler, and writes the response.
func handleGuestCall(ctx context.Context, mod api.Module, stack []uint64, h marshal.ByteHandler, export string, maxRequestSize uint32) {
	ctx = WithGuestName(ctx, GuestName(ctx, mod))

	// Unpack the request pointer and length
	ptr, length := unpackPtrLen(stack[0])

	// Validate request size
	if length > maxRequestSize {
		errMsg := fmt.Sprintf("request size %d exceeds maximum %d bytes", length, maxRequestSize)
		slog.ErrorContext(ctx, "wazero: "+errMsg, "export", export)
		stack[0] = writeErrorResponse(ctx, mod, marshal.NewValidationError(errMsg))
		return
	}

	// Read request bytes from guest memory
	requestBytes, ok := mod.Memory().Read(ptr, length)
	if !ok {
		errMsg := "failed to read request from guest memory"
		slog.ErrorContext(ctx, "wazero: "+errMsg, "export", export)
		stack[0] = writeErrorResponse(ctx, mod, marshal.NewInternalError(errMsg))
		return
	}

	responseBytes, err := h(ctx, requestBytes)
	if err != nil {
		slog.ErrorContext(ctx, "wazero: call failed", "export", export, "error", err)
		stack[0] = writeErrorResponse(ctx, mod, marshal.NewInternalError(err.Error()))
		return
	}

	// Write response to guest memory
	stack[0] = writeResponse(ctx, mod, responseBytes)
}

// writeResponse allocates memory in the guest and writes the response bytes.
// Returns packed ptr+len or 0 on failure.
func writeResponse(ctx context.Context, mod api.Module, data []byte) uint64 {
	// Call the guest's allocate function
	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		slog.ErrorContext(ctx, "wazero: guest module missing 'allocate' export")
		return 0
	}

	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		slog.ErrorContext(ctx, "wazero: failed to call guest allocate", "error", err)
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit

	// Write data to guest memory
	if !mod.Memory().Write(ptr, data) {
		slog.ErrorContext(ctx, "wazero: failed to write response to guest memory")
		return 0
	}

	return packPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: Data length is bounded by config
}

// writeErrorResponse writes an error response to guest memory.
func writeErrorResponse(ctx context.Context, mod api.Module, errResp marshal.ErrorResponse) uint64 {
	return writeResponse(ctx, mod, errResp.ToJSON())
}

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
