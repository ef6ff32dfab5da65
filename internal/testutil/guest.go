package testutil

// ForwardingGuestWasm is a minimal guest module for host-side tests. It
// imports "call" from the "hostcall" module and exports:
//
//   - memory: one 64KiB page
//   - allocate(i32) -> i32: always returns offset 1024
//   - invoke(i64) -> i64: forwards its argument to the imported "call"
//
// Callers write the request below offset 1024 and read the response that the
// host writes at 1024.
var ForwardingGuestWasm = ForwardingGuest("call")

// ForwardingGuest builds the ForwardingGuestWasm module with invoke forwarding
// to hostcall.<export> instead. export must be shorter than 100 bytes.
func ForwardingGuest(export string) []byte {
	if len(export) >= 100 {
		panic("testutil: import name too long: " + export)
	}

	wasm := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version

		// type section: (i64)->(i64), (i32)->(i32)
		0x01, 0x0b, 0x02,
		0x60, 0x01, 0x7e, 0x01, 0x7e,
		0x60, 0x01, 0x7f, 0x01, 0x7f,
	}

	// import section: hostcall.<export>, type 0
	wasm = append(wasm, 0x02, byte(13+len(export)), 0x01,
		0x08, 'h', 'o', 's', 't', 'c', 'a', 'l', 'l',
		byte(len(export)))
	wasm = append(wasm, export...)
	wasm = append(wasm, 0x00, 0x00)

	return append(wasm,
		// function section: allocate is type 1, invoke is type 0
		0x03, 0x03, 0x02, 0x01, 0x00,

		// memory section: min 1 page
		0x05, 0x03, 0x01, 0x00, 0x01,

		// export section
		0x07, 0x1e, 0x03,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x08, 'a', 'l', 'l', 'o', 'c', 'a', 't', 'e', 0x00, 0x01,
		0x06, 'i', 'n', 'v', 'o', 'k', 'e', 0x00, 0x02,

		// code section
		0x0a, 0x0e, 0x02,
		// allocate: i32.const 1024
		0x05, 0x00, 0x41, 0x80, 0x08, 0x0b,
		// invoke: local.get 0; call 0
		0x06, 0x00, 0x20, 0x00, 0x10, 0x00, 0x0b,
	)
}

// GuestResponseOffset is where ForwardingGuestWasm's allocate places every
// response.
const GuestResponseOffset = 1024
