package host

import (
	"context"
	"fmt"
	"log/slog"

	hostwazero "github.com/reglet-dev/hostcall/infrastructure/wazero"
	"github.com/reglet-dev/hostcall/marshal"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Executor owns a wazero runtime whose guests can call the configured
// Marshaller.
type Executor struct {
	runtime     wazero.Runtime
	marshaller  *marshal.Marshaller
	logger      *slog.Logger
	adapterOpts []hostwazero.AdapterOption
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	// Default marshaller if not provided
	if e.marshaller == nil {
		m, err := marshal.NewMarshaller()
		if err != nil {
			return nil, fmt.Errorf("failed to create default marshaller: %w", err)
		}
		e.marshaller = m
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := e.registerHostFunctions(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Marshaller returns the marshaller guests call into.
func (e *Executor) Marshaller() *marshal.Marshaller {
	return e.marshaller
}

// Close releases resources held by the executor.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// GuestInstance represents an instantiated WASM guest.
type GuestInstance struct {
	module api.Module
}

// LoadModule instantiates a WASM module under name. The name is what access
// policies see as the calling guest.
func (e *Executor) LoadModule(ctx context.Context, name string, wasmBytes []byte) (*GuestInstance, error) {
	cfg := wazero.NewModuleConfig().WithName(name)
	mod, err := e.runtime.InstantiateWithConfig(ctx, wasmBytes, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	// Reactor modules export _initialize instead of _start.
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	return &GuestInstance{module: mod}, nil
}

// Name returns the module name the guest was loaded under.
func (g *GuestInstance) Name() string {
	return g.module.Name()
}

// Call invokes a guest export that follows the packed (i64) -> i64 ABI:
// input is copied into guest memory and the response bytes are copied out.
func (g *GuestInstance) Call(ctx context.Context, export string, input []byte) ([]byte, error) {
	packed, err := g.callRaw(ctx, export, input)
	if err != nil {
		return nil, err
	}
	return g.readPacked(packed)
}

// Close releases the guest module.
func (g *GuestInstance) Close(ctx context.Context) error {
	return g.module.Close(ctx)
}
