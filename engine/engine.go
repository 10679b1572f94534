package engine

import (
	"context"
	"strings"

	"github.com/wippyai/ledger-bridge/errors"
	"github.com/wippyai/ledger-bridge/registry"
)

// OperationID identifies an engine operation.
type OperationID uint32

// Call is one outbound invocation of the engine.
type Call struct {
	Args   []string
	Op     OperationID
	Handle registry.Handle
}

// Completion is the engine's report of a call's outcome.
type Completion struct {
	Fields []string
	Handle registry.Handle
	Code   errors.Code
}

// Sink receives completions. Engines call it from their own goroutines,
// never from the goroutine that invoked the call.
type Sink func(Completion)

// Engine is the opaque ledger engine.
//
// Invoke returns nil when the engine accepted the call; the engine then
// delivers exactly one Completion for call.Handle to its Sink, possibly
// before Invoke returns. A non-nil error means the call was rejected and no
// completion will follow.
type Engine interface {
	Invoke(ctx context.Context, call Call) error
	Close(ctx context.Context) error
}

// RegistrySink routes completions into reg. Completions for unknown handles
// are reported by the registry as protocol anomalies.
func RegistrySink(reg *registry.Registry) Sink {
	return func(c Completion) {
		_ = reg.Deliver(c.Handle, c.Code, c.Fields)
	}
}

// fieldSep separates argument and payload fields on the wire.
const fieldSep = "\x00"

// EncodeFields joins fields into a single wire buffer. Fields may not
// contain NUL bytes.
func EncodeFields(fields []string) ([]byte, error) {
	for i, f := range fields {
		if strings.Contains(f, fieldSep) {
			return nil, errors.New(errors.PhaseEngine, errors.KindInvalidData).
				Value(i).
				Detail("field %d contains NUL byte", i).
				Build()
		}
	}
	return []byte(strings.Join(fields, fieldSep)), nil
}

// DecodeFields splits a wire buffer into fields. An empty buffer decodes to
// no fields.
func DecodeFields(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	return strings.Split(string(b), fieldSep)
}
