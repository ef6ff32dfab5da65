// Package host runs WebAssembly guests that call into a Marshaller.
//
// It abstracts the underlying WASM engine (wazero), manages guest lifecycle,
// and handles the low-level ABI interactions (memory allocation, data
// packing/unpacking). Guests reach the marshaller through the "hostcall"
// host module; see the infrastructure/wazero package for the ABI.
package host
