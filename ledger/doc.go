// Package ledger exposes the ledger operations of the bridge as awaitable
// calls.
//
// Each Client method validates its arguments, begins a pending call in the
// registry, and invokes the engine with the call's handle. The returned
// future resolves when the engine's completion arrives:
//
//	fut, err := client.BuildNymRequest(ctx, submitter, target, verkey, "", "")
//	if err != nil {
//	    return err // validation or synchronous rejection
//	}
//	request, err := fut.Wait(ctx)
//
// Validation errors are returned before any handle exists. When the engine
// rejects a call synchronously the handle is released immediately and the
// rejection is returned; the call never completes.
//
// # Operations
//
// The operation catalog (Operations, Lookup, ByID) describes every operation
// with its engine ID and typed parameters. Tooling uses it to build input
// forms and to issue untyped calls through Client.Call.
//
// Request and submit operations complete with one JSON string. The
// parse-get-* operations complete with an identifier and an object JSON,
// returned as ParseResponseResult.
//
// # Simulator
//
// Simulator answers every operation like a small single-node ledger and is
// meant to back the simulated engine in tests, the CLI, and examples.
package ledger
