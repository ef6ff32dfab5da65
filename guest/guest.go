//go:build wasip1

// Package guest lets Go programs compiled to WASM (GOOS=wasip1) invoke the
// operations their host exposes through the "hostcall" module.
//
//	v, err := guest.Call(ctx, "numberTest", entities.Number(1.5), entities.Number(1000))
//	if errors.Is(err, domainerrors.ErrTypeMismatch) {
//	    ...
//	}
package guest

import (
	"context"
	"errors"

	"github.com/reglet-dev/hostcall/domain/entities"
	"github.com/reglet-dev/hostcall/internal/abi"
	"github.com/reglet-dev/hostcall/marshal"
)

//go:wasmimport hostcall call
//nolint:revive // intentional snake_case to match WASM import convention
func host_call(requestPacked uint64) uint64

// ErrNoResponse is returned when the host could not write a response into
// guest memory.
var ErrNoResponse = errors.New("guest: host returned no response")

// Call invokes name on the host with args. ctx's deadline and request ID
// travel with the call. Host-side rejections are returned as
// *marshal.RemoteError values that match the domain error sentinels.
func Call(ctx context.Context, name string, args ...entities.Value) (entities.Value, error) {
	payload, err := marshal.EncodeCall(ctx, name, args...)
	if err != nil {
		return entities.Value{}, err
	}

	req := abi.PtrFromBytes(payload)
	defer abi.DeallocatePacked(req)

	resp := host_call(req)
	if resp == 0 {
		return entities.Value{}, ErrNoResponse
	}
	data := abi.BytesFromPtr(resp)
	abi.DeallocatePacked(resp)

	return marshal.DecodeValue(data)
}
