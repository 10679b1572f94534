// Package ledgerbridge turns a callback-driven ledger engine into awaitable
// Go calls.
//
// A ledger engine accepts a call synchronously and reports its outcome later,
// from its own goroutines, through a completion callback keyed by an integer
// handle. The bridge pairs every call with a single-assignment future held in
// a pending-call registry and resolves it exactly once when the completion
// arrives.
//
// # Architecture Overview
//
//	ledgerbridge/        Root package wiring registry, engine and client
//	├── registry/        Pending-call table, futures, reclamation
//	├── engine/          Engine contract and wire codec
//	│   ├── sim/         In-process simulated engine
//	│   └── guest/       WebAssembly guest engine hosted on wazero
//	├── ledger/          Ledger operations, catalog and simulator
//	├── metrics/         Prometheus collector for registry activity
//	├── errors/          Structured errors and engine error codes
//	└── cmd/ledgerctl/   Command-line client with interactive mode
//
// # Quick Start
//
//	b, err := ledgerbridge.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close(ctx)
//
//	fut, err := b.Client().BuildGetNymRequest(ctx, submitterDid, targetDid)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	request, err := fut.Wait(ctx)
//
// # Error Handling
//
// Errors are *errors.Error values carrying the phase of the call they came
// from. Validation and initiation errors are returned when the call is made.
// Completion errors are returned by Future.Wait exactly once. Completions for
// unknown handles never reach a caller; they are logged and reported to
// registry observers as protocol anomalies.
//
// # Shutdown
//
// Close waits for outstanding calls to complete, fails whatever is left when
// its context ends, and then shuts the engine down.
package ledgerbridge
