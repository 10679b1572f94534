// Package guest hosts a ledger engine compiled to WebAssembly.
//
// The guest is instantiated with wazero and must follow a small ABI:
//
//	import "ledger" "complete" (handle i32, code i32, ptr i32, len i32)
//	export "memory"
//	export "alloc"  (size i32) -> i32
//	export "free"   (ptr i32)
//	export "invoke" (op i32, handle i32, ptr i32, len i32) -> i32
//
// Arguments are written into guest memory as NUL-separated fields. invoke
// returns 0 when the call is accepted and an error code otherwise. The guest
// reports the outcome of an accepted call through complete, either during
// invoke or later; payloads are copied out immediately and handed to the
// sink from a dedicated delivery goroutine.
//
// Calls into the guest are serialized. EchoModule is a built-in guest that
// echoes its arguments and is used for tests and the CLI.
package guest
