package registry

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ledger-bridge/errors"
)

type entry struct {
	slot    slot
	started time.Time
	label   string
}

// Registry maps call handles to in-flight result placeholders.
//
// A single mutex covers handle allocation, insertion, and lookup+removal, so
// exactly one of complete, fail, cancel, or release can remove a given entry.
// Placeholders are resolved and observers notified after the lock is dropped.
type Registry struct {
	now       func() time.Time
	entries   map[Handle]entry
	idle      chan struct{}
	observers []Observer
	cfg       Config
	obsMu     sync.RWMutex
	mu        sync.Mutex
	stats     counters
	next      Handle
	maxHandle Handle
	closed    bool
}

type counters struct {
	begun     atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	cancelled atomic.Uint64
	closed    atomic.Uint64
	released  atomic.Uint64
	anomalies atomic.Uint64
}

// New creates an empty registry with default configuration.
func New() *Registry {
	return NewWithConfig(nil)
}

// NewWithConfig creates an empty registry with custom configuration.
func NewWithConfig(cfg *Config) *Registry {
	idle := make(chan struct{})
	close(idle)
	r := &Registry{
		now:       time.Now,
		entries:   make(map[Handle]entry, 64),
		idle:      idle,
		maxHandle: math.MaxUint32,
	}
	if cfg != nil {
		r.cfg = *cfg
	}
	return r
}

// Begin allocates a handle and an unresolved Future and inserts the pair into
// the table. label names the operation for diagnostics. decode converts the
// payload of a successful completion; it may be nil when T is []string.
//
// Begin only fails once the registry is closed. It panics if every non-zero
// handle is outstanding.
func Begin[T any](r *Registry, label string, decode Decoder[T]) (Handle, *Future[T], error) {
	f := newFuture(r, decode)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, nil, errors.Closed(0)
	}
	h := r.allocate()
	f.handle = h
	if len(r.entries) == 0 {
		r.idle = make(chan struct{})
	}
	r.entries[h] = entry{slot: f, label: label, started: r.now()}
	r.mu.Unlock()

	r.stats.begun.Add(1)
	r.notify(Event{Type: EventBegun, Handle: h, Label: label})
	return h, f, nil
}

// allocate issues the next free handle. Caller must hold r.mu.
func (r *Registry) allocate() Handle {
	if uint64(len(r.entries)) >= uint64(r.maxHandle) {
		panic(fmt.Sprintf("registry: handle space exhausted (%d outstanding)", len(r.entries)))
	}
	for {
		if r.next >= r.maxHandle {
			r.next = 0
		}
		r.next++
		if _, busy := r.entries[r.next]; !busy {
			return r.next
		}
	}
}

// take looks up and removes the entry for h as one atomic step.
func (r *Registry) take(h Handle) (entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[h]
	if !ok {
		return entry{}, false
	}
	delete(r.entries, h)
	if len(r.entries) == 0 {
		close(r.idle)
	}
	return e, true
}

// Complete resolves the call for h with the payload fields of a successful
// completion. An unknown handle is reported as a protocol anomaly.
func (r *Registry) Complete(h Handle, fields []string) error {
	e, ok := r.take(h)
	if !ok {
		return r.anomaly(h, "complete")
	}
	outcome, err := r.settle(h, e, fields, nil)
	if err != nil {
		return err
	}
	if outcome != nil {
		r.stats.failed.Add(1)
		r.notify(Event{Type: EventFailed, Handle: h, Label: e.label, Err: outcome})
		return nil
	}
	r.stats.completed.Add(1)
	r.notify(Event{Type: EventCompleted, Handle: h, Label: e.label})
	return nil
}

// Fail fails the call for h with cause. An unknown handle is reported as a
// protocol anomaly.
func (r *Registry) Fail(h Handle, cause error) error {
	if cause == nil {
		cause = errors.New(errors.PhaseComplete, errors.KindEngineError).
			Handle(uint32(h)).
			Detail("failure without cause").
			Build()
	}
	e, ok := r.take(h)
	if !ok {
		return r.anomaly(h, "fail")
	}
	if _, err := r.settle(h, e, nil, cause); err != nil {
		return err
	}
	r.stats.failed.Add(1)
	r.notify(Event{Type: EventFailed, Handle: h, Label: e.label, Err: cause})
	return nil
}

// Deliver routes an engine completion callback. Success routes to Complete;
// any other code fails the call with a classification derived from the code.
func (r *Registry) Deliver(h Handle, code errors.Code, fields []string) error {
	if code == errors.Success {
		return r.Complete(h, fields)
	}
	return r.Fail(h, errors.FromCode(uint32(h), code))
}

// Cancel removes the call for h before completion and fails it as cancelled.
// Racing against a completion, exactly one side wins; the loser observes an
// unknown-handle error.
func (r *Registry) Cancel(h Handle) error {
	return r.cancel(h, errors.Cancelled(uint32(h), nil))
}

// cancel removes h and fails it with err, which is a cancellation or
// timeout error.
func (r *Registry) cancel(h Handle, err error) error {
	e, ok := r.take(h)
	if !ok {
		// Losing a cancel race is expected and not a protocol anomaly.
		return errors.UnknownHandle(uint32(h), "cancel")
	}
	if _, serr := r.settle(h, e, nil, err); serr != nil {
		return serr
	}
	r.stats.cancelled.Add(1)
	r.notify(Event{Type: EventCancelled, Handle: h, Label: e.label, Err: err})
	return nil
}

// Release rolls back a call the engine rejected synchronously. The entry is
// removed and its future failed with cause, so no placeholder is left
// unresolved.
func (r *Registry) Release(h Handle, cause error) error {
	e, ok := r.take(h)
	if !ok {
		return r.anomaly(h, "release")
	}
	if _, err := r.settle(h, e, nil, cause); err != nil {
		return err
	}
	r.stats.released.Add(1)
	r.notify(Event{Type: EventReleased, Handle: h, Label: e.label, Err: cause})
	return nil
}

// settle assigns the result of a removed entry. A failed assignment means
// the entry had already been resolved, which the table discipline rules out.
func (r *Registry) settle(h Handle, e entry, fields []string, cause error) (outcome, err error) {
	outcome, assigned := e.slot.resolve(fields, cause)
	if !assigned {
		Logger().Error("pending call resolved twice",
			zap.Uint32("handle", uint32(h)),
			zap.String("label", e.label))
		return nil, outcome
	}
	return outcome, nil
}

func (r *Registry) anomaly(h Handle, op string) error {
	err := errors.UnknownHandle(uint32(h), op)
	r.stats.anomalies.Add(1)
	Logger().Warn("completion for unknown handle",
		zap.Uint32("handle", uint32(h)),
		zap.String("op", op))
	r.notify(Event{Type: EventAnomaly, Handle: h, Err: err})
	return err
}

// Len returns the number of outstanding calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Outstanding returns a snapshot of outstanding calls ordered by handle.
func (r *Registry) Outstanding() []Entry {
	now := r.now()
	r.mu.Lock()
	out := make([]Entry, 0, len(r.entries))
	for h, e := range r.entries {
		out = append(out, Entry{Handle: h, Label: e.label, Started: e.started, Age: now.Sub(e.started)})
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Stats returns cumulative counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Begun:       r.stats.begun.Load(),
		Completed:   r.stats.completed.Load(),
		Failed:      r.stats.failed.Load(),
		Cancelled:   r.stats.cancelled.Load(),
		Closed:      r.stats.closed.Load(),
		Released:    r.stats.released.Load(),
		Anomalies:   r.stats.anomalies.Load(),
		Outstanding: r.Len(),
	}
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnCallEvent(e)
	}
}

// Drain blocks until no calls are outstanding or ctx is done.
func (r *Registry) Drain(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.PhaseLifecycle, errors.KindTimeout, ctx.Err(),
			fmt.Sprintf("drain with %d calls outstanding", r.Len()))
	}
}

// Close stops accepting new calls and fails every outstanding call as
// closed. It returns the number of calls it failed. Close is idempotent.
func (r *Registry) Close() int {
	r.mu.Lock()
	r.closed = true
	pending := r.entries
	r.entries = make(map[Handle]entry)
	if len(pending) > 0 {
		close(r.idle)
	}
	r.mu.Unlock()

	for h, e := range pending {
		err := errors.Closed(uint32(h))
		if _, serr := r.settle(h, e, nil, err); serr != nil {
			continue
		}
		r.stats.closed.Add(1)
		r.notify(Event{Type: EventClosed, Handle: h, Label: e.label, Err: err})
	}
	if len(pending) > 0 {
		Logger().Info("registry closed with outstanding calls", zap.Int("count", len(pending)))
	}
	return len(pending)
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
