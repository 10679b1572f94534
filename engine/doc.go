// Package engine defines the contract between the pending-call registry and
// the opaque ledger engine that does the actual work.
//
// The engine is consumed through two directions:
//
//	outbound  Engine.Invoke(ctx, Call{Op, Handle, Args})  -> accept / reject
//	inbound   Sink(Completion{Handle, Code, Fields})
//
// A rejected Invoke never produces a completion. An accepted one produces
// exactly one, from a goroutine owned by the engine. Completions may arrive
// in any order relative to the order calls were issued, and may arrive
// before Invoke returns.
//
// # Wire Fields
//
// Arguments and payloads are lists of strings. Engines that cross a memory
// boundary encode them as NUL-separated UTF-8 with EncodeFields and
// DecodeFields.
//
// # Implementations
//
//	engine/sim    in-process simulated engine with worker goroutines
//	engine/guest  WebAssembly guest hosted on wazero
package engine
