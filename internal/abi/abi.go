//go:build wasip1

// Package abi manages the guest side of the packed pointer/length ABI: the
// "allocate" and "deallocate" exports the host calls, and helpers to move
// byte slices across the boundary.
package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// PtrHighBits is the shift of the pointer half of a packed value.
const PtrHighBits = 32

// DefaultMaxTotalAllocations caps the bytes pinned at any one time.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// Option configures the allocator.
type Option func(*arena)

// WithMaxTotalAllocations sets the pinned-bytes cap. Non-positive values are ignored.
func WithMaxTotalAllocations(limit int) Option {
	return func(a *arena) {
		if limit > 0 {
			a.limit = limit
		}
	}
}

// Configure applies opts to the allocator.
func Configure(opts ...Option) {
	pinned.Lock()
	defer pinned.Unlock()
	for _, opt := range opts {
		opt(&pinned)
	}
}

// arena pins Go slices handed to the host so the GC keeps them alive until
// they are released.
type arena struct {
	bufs  map[uint32][]byte
	total int
	limit int
	sync.Mutex
}

var pinned = arena{
	bufs:  make(map[uint32][]byte),
	limit: DefaultMaxTotalAllocations,
}

// allocate reserves size bytes and returns their address. The host calls it
// to obtain memory for responses.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	pinned.Lock()
	defer pinned.Unlock()

	if pinned.total+int(size) > pinned.limit {
		panic(fmt.Sprintf("abi: allocation of %d bytes exceeds limit (%d of %d in use)", size, pinned.total, pinned.limit))
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	pinned.bufs[ptr] = buf
	pinned.total += int(size)
	return ptr
}

// deallocate releases a pointer returned by allocate. Unknown pointers are
// ignored; the recorded size wins over the one passed in.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, _ uint32) {
	pinned.Lock()
	defer pinned.Unlock()

	buf, ok := pinned.bufs[ptr]
	if !ok {
		return
	}
	delete(pinned.bufs, ptr)
	pinned.total -= len(buf)
}

// Stats reports the number of pinned buffers and their total size.
func Stats() (count, bytes int) {
	pinned.Lock()
	defer pinned.Unlock()
	return len(pinned.bufs), pinned.total
}

// FreeAllTracked releases every pinned buffer.
func FreeAllTracked() {
	pinned.Lock()
	defer pinned.Unlock()
	clear(pinned.bufs)
	pinned.total = 0
}

// PtrFromBytes copies data into newly allocated memory and returns its
// packed location. The caller releases it with DeallocatePacked.
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data))
	ptr := allocate(size)
	copy(view(ptr, size), data)
	return PackPtrLen(ptr, size)
}

// BytesFromPtr copies the bytes at a packed location.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	return append([]byte(nil), view(ptr, length)...)
}

// DeallocatePacked releases the buffer at a packed location.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		deallocate(ptr, length)
	}
}

// PackPtrLen packs a pointer and length into a single uint64.
// A null pointer with a non-zero length panics.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: null pointer with length %d", length))
	}
	return uint64(ptr)<<PtrHighBits | uint64(length)
}

// UnpackPtrLen is the inverse of PackPtrLen.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits)
	length = uint32(packed)
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: null pointer with length %d", length))
	}
	return ptr, length
}

// view aliases length bytes of linear memory at ptr.
func view(ptr, length uint32) []byte {
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}
