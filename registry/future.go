package registry

import (
	"context"
	"sync/atomic"

	"github.com/wippyai/ledger-bridge/errors"
)

// slot is the type-erased view of a Future the table stores.
type slot interface {
	// resolve assigns the result exactly once. A non-nil cause fails the slot,
	// otherwise fields are decoded. Returns the error the consumer will see
	// (nil on success) and whether this call performed the assignment.
	resolve(fields []string, cause error) (outcome error, assigned bool)
}

// Future is a single-assignment result placeholder for one pending call.
// It is written by exactly one producer (the completion path) and read by
// exactly one consumer (the caller that began the call).
type Future[T any] struct {
	value  T
	err    error
	reg    *Registry
	decode Decoder[T]
	done   chan struct{}
	state  atomic.Bool
	handle Handle
}

func newFuture[T any](reg *Registry, decode Decoder[T]) *Future[T] {
	return &Future[T]{
		reg:    reg,
		decode: decode,
		done:   make(chan struct{}),
	}
}

// Handle returns the call handle this future is bound to.
func (f *Future[T]) Handle() Handle {
	return f.handle
}

// Done is closed once the result has been assigned.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the assigned result without blocking. The final return
// value reports whether a result has been assigned yet.
func (f *Future[T]) Result() (T, error, bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Wait blocks until the result is assigned or ctx is done. When ctx ends
// first the call is cancelled in the registry; if a completion wins that
// race, Wait returns the completion's result instead.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
	}

	if f.reg != nil {
		// Either the cancel removes the entry and fails this future, or some
		// other path already removed it and is about to resolve it.
		_ = f.reg.cancel(f.handle, errors.Cancelled(uint32(f.handle), ctx.Err()))
	}
	<-f.done
	return f.value, f.err
}

func (f *Future[T]) resolve(fields []string, cause error) (error, bool) {
	if !f.state.CompareAndSwap(false, true) {
		return errors.AlreadyResolved(uint32(f.handle)), false
	}

	if cause != nil {
		f.err = cause
	} else if f.decode == nil {
		// Raw []string results need no decoder.
		if v, ok := any(fields).(T); ok {
			f.value = v
		} else {
			f.err = errors.InvalidData(uint32(f.handle), "no decoder for payload")
		}
	} else {
		v, err := f.decode(fields)
		if err != nil {
			f.err = errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Handle(uint32(f.handle)).
				Detail("decode payload").
				Cause(err).
				Build()
		} else {
			f.value = v
		}
	}

	close(f.done)
	return f.err, true
}
