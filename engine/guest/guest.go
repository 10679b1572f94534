package guest

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ledger-bridge/engine"
	"github.com/wippyai/ledger-bridge/errors"
	"github.com/wippyai/ledger-bridge/registry"
)

const (
	hostModule   = "ledger"
	completeFunc = "complete"

	exportInvoke = "invoke"
	exportAlloc  = "alloc"
	exportFree   = "free"

	pageSize = 65536
)

// Config holds configuration for the guest engine.
type Config struct {
	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// QueueSize bounds completions waiting for delivery. 0 means 256.
	QueueSize int
}

// Engine runs a WebAssembly guest as the ledger engine.
type Engine struct {
	runtime wazero.Runtime
	module  api.Module
	invoke  api.Function
	alloc   api.Function
	free    api.Function
	sink    engine.Sink
	queue   chan engine.Completion
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
}

// New instantiates wasmBytes as the engine, delivering completions to sink.
func New(ctx context.Context, wasmBytes []byte, sink engine.Sink) (*Engine, error) {
	return NewWithConfig(ctx, wasmBytes, sink, nil)
}

// NewWithConfig instantiates wasmBytes with custom configuration.
func NewWithConfig(ctx context.Context, wasmBytes []byte, sink engine.Sink, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	queueSize := 256
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.QueueSize > 0 {
			queueSize = cfg.QueueSize
		}
	}

	e := &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		sink:    sink,
		queue:   make(chan engine.Completion, queueSize),
		done:    make(chan struct{}),
	}

	_, err := e.runtime.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.complete),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export(completeFunc).
		Instantiate(ctx)
	if err != nil {
		e.runtime.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		e.runtime.Close(ctx)
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindInvalidData, err, "compile guest")
	}
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("engine"))
	if err != nil {
		e.runtime.Close(ctx)
		return nil, errors.Instantiation(err)
	}
	e.module = mod

	for name, fn := range map[string]*api.Function{
		exportInvoke: &e.invoke,
		exportAlloc:  &e.alloc,
		exportFree:   &e.free,
	} {
		*fn = mod.ExportedFunction(name)
		if *fn == nil {
			e.runtime.Close(ctx)
			return nil, errors.NotFound(errors.PhaseEngine, "guest export", name)
		}
	}
	if mod.Memory() == nil {
		e.runtime.Close(ctx)
		return nil, errors.NotFound(errors.PhaseEngine, "guest export", "memory")
	}

	go e.dispatch()
	return e, nil
}

// complete is the host import the guest calls to report an outcome:
// complete(handle, code, ptr, len). The payload is copied out of guest memory
// before the guest can reuse it.
func (e *Engine) complete(_ context.Context, mod api.Module, stack []uint64) {
	handle := api.DecodeU32(stack[0])
	code := errors.Code(api.DecodeI32(stack[1]))
	ptr := api.DecodeU32(stack[2])
	n := api.DecodeU32(stack[3])

	var fields []string
	if n > 0 {
		buf, ok := mod.Memory().Read(ptr, n)
		if !ok {
			engine.Logger().Error("guest completion payload out of bounds",
				zap.Uint32("handle", handle),
				zap.Uint32("ptr", ptr),
				zap.Uint32("len", n))
			code = errors.CommonInvalidStructure
		} else {
			fields = engine.DecodeFields(buf)
		}
	}

	e.queue <- engine.Completion{Handle: registry.Handle(handle), Code: code, Fields: fields}
}

func (e *Engine) dispatch() {
	defer close(e.done)
	for c := range e.queue {
		e.sink(c)
	}
}

// Invoke writes call's arguments into guest memory and calls the guest's
// invoke export. A non-zero return is a synchronous rejection.
func (e *Engine) Invoke(ctx context.Context, call engine.Call) error {
	payload, err := engine.EncodeFields(call.Args)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.Closed(uint32(call.Handle))
	}

	size := uint32(len(payload))
	res, err := e.alloc.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindEngineError, err, "guest alloc")
	}
	ptr := api.DecodeU32(res[0])
	defer func() {
		if _, ferr := e.free.Call(ctx, api.EncodeU32(ptr)); ferr != nil {
			engine.Logger().Warn("guest free failed", zap.Error(ferr))
		}
	}()

	mem := e.module.Memory()
	if end := uint64(ptr) + uint64(size); end > uint64(mem.Size()) {
		pages := uint32((end - uint64(mem.Size()) + pageSize - 1) / pageSize)
		if _, ok := mem.Grow(pages); !ok {
			return errors.New(errors.PhaseEngine, errors.KindExhausted).
				Handle(uint32(call.Handle)).
				Detail("grow guest memory by %d pages", pages).
				Build()
		}
	}
	if size > 0 && !mem.Write(ptr, payload) {
		return errors.New(errors.PhaseEngine, errors.KindEngineError).
			Handle(uint32(call.Handle)).
			Detail("write %d argument bytes at %d", size, ptr).
			Build()
	}

	res, err = e.invoke.Call(ctx,
		api.EncodeU32(uint32(call.Op)),
		api.EncodeU32(uint32(call.Handle)),
		api.EncodeU32(ptr),
		api.EncodeU32(size))
	if err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindEngineError, err, "guest invoke")
	}
	if code := errors.Code(api.DecodeI32(res[0])); code != errors.Success {
		return errors.Rejected(uint32(call.Handle), code)
	}
	return nil
}

// Close shuts the guest down after delivering pending completions.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	err := e.runtime.Close(ctx)
	close(e.queue)
	e.mu.Unlock()

	select {
	case <-e.done:
	case <-ctx.Done():
		return errors.Wrap(errors.PhaseLifecycle, errors.KindTimeout, ctx.Err(), "guest engine close")
	}
	return err
}
