package host

import (
	"context"
	"fmt"
	"log/slog"

	hostwazero "github.com/reglet-dev/hostcall/infrastructure/wazero"
	hostlog "github.com/reglet-dev/hostcall/log"
	"github.com/tetratelabs/wazero/api"
)

func (e *Executor) registerHostFunctions(ctx context.Context) error {
	opts := append([]hostwazero.AdapterOption{
		hostwazero.WithCustomHandler(hostwazero.CustomHandler{
			Name:        "log_message",
			Handler:     e.logMessage,
			ParamTypes:  []api.ValueType{api.ValueTypeI64},
			ResultTypes: []api.ValueType{},
		}),
	}, e.adapterOpts...)

	return hostwazero.RegisterWithRuntime(ctx, e.runtime, e.marshaller, opts...)
}

// logMessage forwards a guest log record to the executor's logger.
func (e *Executor) logMessage(ctx context.Context, m api.Module, stack []uint64) {
	ptr := uint32(stack[0] >> 32) //nolint:gosec // G115: Packed format stores 32-bit values
	length := uint32(stack[0])    //nolint:gosec // G115: Packed format stores 32-bit values
	payload, ok := m.Memory().Read(ptr, length)
	if !ok {
		return
	}

	if err := hostlog.Replay(ctx, e.logger.Handler(), payload, slog.String("guest", m.Name())); err != nil {
		e.logger.InfoContext(ctx, "guest log (raw)", "guest", m.Name(), "payload", string(payload))
	}
}

func (g *GuestInstance) callRaw(ctx context.Context, name string, input []byte) (uint64, error) {
	f := g.module.ExportedFunction(name)
	if f == nil {
		return 0, fmt.Errorf("export %q not found", name)
	}

	var packed uint64
	if len(input) > 0 {
		allocate := g.module.ExportedFunction("allocate")
		if allocate == nil {
			return 0, fmt.Errorf("guest does not export 'allocate'")
		}
		resAlloc, err := allocate.Call(ctx, uint64(len(input)))
		if err != nil {
			return 0, fmt.Errorf("failed to allocate in guest: %w", err)
		}
		if len(resAlloc) == 0 {
			return 0, fmt.Errorf("allocate returned no results")
		}
		ptr := uint32(resAlloc[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
		if !g.module.Memory().Write(ptr, input) {
			return 0, fmt.Errorf("failed to write input to guest memory")
		}
		packed = uint64(ptr)<<32 | uint64(len(input))
	}

	results, err := f.Call(ctx, packed)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

func (g *GuestInstance) readPacked(packed uint64) ([]byte, error) {
	ptr := uint32(packed >> 32) //nolint:gosec // G115: Packed format stores 32-bit values
	length := uint32(packed)    //nolint:gosec // G115: Packed format stores 32-bit values
	if length == 0 {
		return nil, fmt.Errorf("null response from guest")
	}
	data, ok := g.module.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("failed to read response from memory")
	}
	// Copy out: guest memory may be reused by the next call.
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}
