// Package wazero exposes a Marshaller to WebAssembly guests running in the
// wazero runtime.
//
// It handles:
//
//   - Converting between packed i64 pointer+length format and byte slices
//   - Reading call payloads from guest memory
//   - Allocating and writing responses to guest memory
//   - Restricting which guest may call which operation
//
// # Guest ABI
//
// Guests import "call" from the host module (default "hostcall") with the
// signature (i64) -> i64. The argument packs the pointer (upper 32 bits) and
// length (lower 32 bits) of a JSON call payload:
//
//	{"name": "numberTest", "args": [1.5, 1000], "context": {"timeout_ms": 500}}
//
// The result packs the location of the JSON response, which the host writes
// into memory obtained from the guest's "allocate" export:
//
//	{"value": 1001.5, "request_id": "..."}
//	{"error": "TYPE_MISMATCH", "message": "...", "code": 400, "details": {...}}
//
// # Basic Usage
//
//	_, m, err := simple.NewMarshaller(ctorArgs)
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	err = wazero.RegisterWithRuntime(ctx, runtime, m,
//	    wazero.WithAccessPolicy(wazero.AllowList{"*": {"*"}}),
//	)
//
// # Custom Handlers
//
// For handlers that don't fit the standard request/response pattern (like logging),
// use WithCustomHandler:
//
//	wazero.RegisterWithRuntime(ctx, runtime, m,
//	    wazero.WithCustomHandler(wazero.CustomHandler{
//	        Name:        "log_message",
//	        Handler:     logMessageHandler,
//	        ParamTypes:  []api.ValueType{api.ValueTypeI64},
//	        ResultTypes: []api.ValueType{},
//	    }),
//	)
package wazero
