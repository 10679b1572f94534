// Package sim provides an in-process simulated ledger engine.
//
// The simulated engine accepts calls synchronously and delivers their
// completions from its own worker goroutines, the way a native engine calls
// back from its own threads. Responses, synchronous rejections, delivery
// delays and duplicate callbacks are all programmable, which makes it the
// engine of choice for tests and demos.
package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ledger-bridge/engine"
	"github.com/wippyai/ledger-bridge/errors"
)

// Responder computes the outcome of a call. It runs on a worker goroutine.
type Responder func(call engine.Call) (errors.Code, []string)

// Echo responds successfully with the call's arguments as payload fields.
func Echo(call engine.Call) (errors.Code, []string) {
	return errors.Success, call.Args
}

// Config holds configuration for the simulated engine.
type Config struct {
	// Responder handles operations without a per-operation responder.
	// nil means Echo.
	Responder Responder

	// Responders overrides the responder per operation.
	Responders map[engine.OperationID]Responder

	// Rejections makes Invoke reject the listed operations synchronously.
	// Entries with code Success are ignored.
	Rejections map[engine.OperationID]errors.Code

	// Delay is applied before each completion is delivered.
	Delay time.Duration

	// Workers is the number of delivery goroutines. 0 means 4.
	Workers int

	// QueueSize bounds accepted-but-undelivered calls. 0 means 256.
	QueueSize int

	// Duplicates delivers every completion twice.
	Duplicates bool
}

// Engine is the simulated engine.
type Engine struct {
	sink     engine.Sink
	queue    chan engine.Call
	cfg      Config
	wg       sync.WaitGroup
	mu       sync.RWMutex
	invoked  atomic.Uint64
	rejected atomic.Uint64
	closed   bool
}

// New creates a simulated engine delivering completions to sink.
func New(sink engine.Sink) *Engine {
	return NewWithConfig(sink, nil)
}

// NewWithConfig creates a simulated engine with custom configuration.
func NewWithConfig(sink engine.Sink, cfg *Config) *Engine {
	e := &Engine{sink: sink}
	if cfg != nil {
		e.cfg = *cfg
	}
	if e.cfg.Responder == nil {
		e.cfg.Responder = Echo
	}
	if e.cfg.Workers <= 0 {
		e.cfg.Workers = 4
	}
	if e.cfg.QueueSize <= 0 {
		e.cfg.QueueSize = 256
	}
	if len(e.cfg.Rejections) > 0 {
		rejections := make(map[engine.OperationID]errors.Code, len(e.cfg.Rejections))
		for op, code := range e.cfg.Rejections {
			if code == errors.Success {
				engine.Logger().Warn("ignoring rejection with success code", zap.Uint32("op", uint32(op)))
				continue
			}
			rejections[op] = code
		}
		e.cfg.Rejections = rejections
	}

	e.queue = make(chan engine.Call, e.cfg.QueueSize)
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Invoke accepts or rejects call. Accepted calls are queued for delivery.
func (e *Engine) Invoke(ctx context.Context, call engine.Call) error {
	if code, ok := e.cfg.Rejections[call.Op]; ok {
		e.rejected.Add(1)
		return errors.Rejected(uint32(call.Handle), code)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return errors.Closed(uint32(call.Handle))
	}

	select {
	case e.queue <- call:
		e.invoked.Add(1)
		return nil
	case <-ctx.Done():
		return errors.Cancelled(uint32(call.Handle), ctx.Err())
	}
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for call := range e.queue {
		if e.cfg.Delay > 0 {
			time.Sleep(e.cfg.Delay)
		}
		respond := e.cfg.Responder
		if r, ok := e.cfg.Responders[call.Op]; ok {
			respond = r
		}
		code, fields := respond(call)
		c := engine.Completion{Handle: call.Handle, Code: code, Fields: fields}
		e.sink(c)
		if e.cfg.Duplicates {
			engine.Logger().Debug("delivering duplicate completion",
				zap.Uint32("handle", uint32(call.Handle)))
			e.sink(c)
		}
	}
}

// Invoked returns the number of calls accepted so far.
func (e *Engine) Invoked() uint64 {
	return e.invoked.Load()
}

// Rejected returns the number of calls rejected so far.
func (e *Engine) Rejected() uint64 {
	return e.rejected.Load()
}

// Close stops accepting calls and waits for queued completions to be
// delivered, or for ctx to end.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.PhaseLifecycle, errors.KindTimeout, ctx.Err(), "sim engine close")
	}
}
