// Package registry bridges a callback-driven engine to callers that await a
// single result per call.
//
// Every call is tracked by a Handle. Begin allocates the handle together with
// an unresolved Future and inserts both into the table; the engine is then
// invoked with the handle and later reports the outcome through a completion
// callback, which the registry routes back to the Future:
//
//	reg := registry.New()
//
//	h, fut, err := registry.Begin(reg, "build_nym_request", decodeString)
//	if err != nil {
//	    return err
//	}
//	if err := eng.Invoke(ctx, call(h)); err != nil {
//	    reg.Release(h, err) // rejected synchronously, no callback will come
//	    return err
//	}
//	result, err := fut.Wait(ctx)
//
// On the engine's callback thread:
//
//	reg.Deliver(h, code, fields)
//
// # Single Resolution
//
// Lookup and removal of an entry happen under one lock. Complete, Fail,
// Cancel, Release, and the reaper all remove before resolving, so exactly one
// of them can win for a given handle and the others see an unknown-handle
// error. A Future additionally refuses a second assignment.
//
// # Handle Allocation
//
// Handles are issued monotonically from a counter owned by the Registry.
// Handle 0 is never issued. After wrap-around, handles still outstanding are
// skipped, so a handle is never reused while its call is pending.
//
// # Protocol Anomalies
//
// A completion for a handle with no entry (a duplicate callback, or one that
// arrives after cancellation) cannot be delivered to any caller. It is logged,
// counted in Stats, and reported to observers as EventAnomaly.
//
// # Reclamation
//
// Wait cancels its call when its context ends. Calls nobody waits on can be
// reclaimed by setting Config.MaxAge and running Run in a goroutine. Close
// fails everything still outstanding; Drain waits for the table to empty.
package registry
