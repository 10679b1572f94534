// Package errors provides structured error types for the ledger bridge.
//
// Errors are categorized by Phase (where in a call's lifecycle the error
// occurred) and Kind (error category). Errors raised by the ledger engine carry
// the engine's numeric Code, which Classify maps onto a coarse Class.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindInvalidInput).
//		Path("submitterDid").
//		Detail("must not be blank").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Rejected(handle, errors.PoolLedgerInvalidPoolHandle)
//	err := errors.UnknownHandle(handle, "complete")
//
// The phases map onto the four error kinds a caller can see:
//
//	PhaseValidate  bad argument, no handle was ever allocated
//	PhaseInitiate  engine rejected the call synchronously, handle released
//	PhaseComplete  engine reported failure in its completion callback
//	PhaseProtocol  callback for a handle with no pending entry (diagnostic only)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
