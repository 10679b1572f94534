package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/ledger-bridge/engine"
	"github.com/wippyai/ledger-bridge/errors"
	"github.com/wippyai/ledger-bridge/registry"
)

type collector struct {
	got []engine.Completion
	mu  sync.Mutex
}

func (c *collector) sink(comp engine.Completion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, comp)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func TestEngine_EchoDelivers(t *testing.T) {
	ctx := context.Background()
	col := &collector{}
	eng := New(col.sink)

	if err := eng.Invoke(ctx, engine.Call{Op: 1, Handle: 9, Args: []string{"a", "b"}}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if err := eng.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if col.len() != 1 {
		t.Fatalf("expected 1 completion, got %d", col.len())
	}
	c := col.got[0]
	if c.Handle != 9 || c.Code != errors.Success || len(c.Fields) != 2 || c.Fields[1] != "b" {
		t.Fatalf("completion = %+v", c)
	}
	if eng.Invoked() != 1 {
		t.Fatalf("Invoked = %d, want 1", eng.Invoked())
	}
}

func TestEngine_Rejection(t *testing.T) {
	ctx := context.Background()
	col := &collector{}
	eng := NewWithConfig(col.sink, &Config{
		Rejections: map[engine.OperationID]errors.Code{3: errors.PoolLedgerInvalidPoolHandle},
	})
	defer eng.Close(ctx)

	err := eng.Invoke(ctx, engine.Call{Op: 3, Handle: 1})
	if !errors.IsKind(err, errors.KindRejected) {
		t.Fatalf("err = %v, want rejected", err)
	}
	if errors.CodeOf(err) != errors.PoolLedgerInvalidPoolHandle {
		t.Fatalf("code = %v", errors.CodeOf(err))
	}
	if eng.Rejected() != 1 {
		t.Fatalf("Rejected = %d, want 1", eng.Rejected())
	}
}

func TestEngine_SuccessRejectionIgnored(t *testing.T) {
	ctx := context.Background()
	col := &collector{}
	rejections := map[engine.OperationID]errors.Code{3: errors.Success, 4: errors.CommonInvalidParam1}
	eng := NewWithConfig(col.sink, &Config{Rejections: rejections})

	if err := eng.Invoke(ctx, engine.Call{Op: 3, Handle: 1}); err != nil {
		t.Fatalf("Invoke of op 3 failed: %v", err)
	}
	if err := eng.Invoke(ctx, engine.Call{Op: 4, Handle: 2}); errors.CodeOf(err) != errors.CommonInvalidParam1 {
		t.Fatalf("op 4: err = %v", err)
	}
	if err := eng.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if col.len() != 1 || eng.Rejected() != 1 {
		t.Fatalf("completions = %d, rejected = %d", col.len(), eng.Rejected())
	}
	if len(rejections) != 2 {
		t.Fatalf("caller's map modified: %v", rejections)
	}
}

func TestEngine_PerOperationResponder(t *testing.T) {
	ctx := context.Background()
	col := &collector{}
	eng := NewWithConfig(col.sink, &Config{
		Responders: map[engine.OperationID]Responder{
			5: func(engine.Call) (errors.Code, []string) { return errors.LedgerNotFound, nil },
		},
	})

	_ = eng.Invoke(ctx, engine.Call{Op: 5, Handle: 1})
	_ = eng.Invoke(ctx, engine.Call{Op: 6, Handle: 2, Args: []string{"x"}})
	_ = eng.Close(ctx)

	codes := map[registry.Handle]errors.Code{}
	for _, c := range col.got {
		codes[c.Handle] = c.Code
	}
	if codes[1] != errors.LedgerNotFound || codes[2] != errors.Success {
		t.Fatalf("codes = %v", codes)
	}
}

func TestEngine_Duplicates(t *testing.T) {
	ctx := context.Background()
	col := &collector{}
	eng := NewWithConfig(col.sink, &Config{Duplicates: true, Workers: 1})

	_ = eng.Invoke(ctx, engine.Call{Op: 1, Handle: 4})
	_ = eng.Close(ctx)

	if col.len() != 2 {
		t.Fatalf("expected duplicate delivery, got %d completions", col.len())
	}
}

func TestEngine_InvokeAfterClose(t *testing.T) {
	ctx := context.Background()
	eng := New(func(engine.Completion) {})
	_ = eng.Close(ctx)

	err := eng.Invoke(ctx, engine.Call{Op: 1, Handle: 1})
	if !errors.IsKind(err, errors.KindClosed) {
		t.Fatalf("err = %v, want closed", err)
	}
	if err := eng.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestEngine_InvokeContextDone(t *testing.T) {
	block := make(chan struct{})
	eng := NewWithConfig(func(engine.Completion) { <-block }, &Config{Workers: 1, QueueSize: 1})
	defer func() {
		close(block)
		_ = eng.Close(context.Background())
	}()

	// One call occupies the worker, one fills the queue.
	_ = eng.Invoke(context.Background(), engine.Call{Op: 1, Handle: 1})
	time.Sleep(10 * time.Millisecond)
	_ = eng.Invoke(context.Background(), engine.Call{Op: 1, Handle: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := eng.Invoke(ctx, engine.Call{Op: 1, Handle: 3})
	if !errors.IsKind(err, errors.KindCancelled) {
		t.Fatalf("err = %v, want cancelled", err)
	}
}

func TestEngine_WithRegistry(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	eng := NewWithConfig(engine.RegistrySink(reg), &Config{Delay: time.Millisecond, Workers: 8})
	defer eng.Close(ctx)

	const calls = 100
	futs := make([]*registry.Future[[]string], calls)
	for i := range futs {
		h, fut, err := registry.Begin[[]string](reg, "echo", nil)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		futs[i] = fut
		if err := eng.Invoke(ctx, engine.Call{Op: 1, Handle: h, Args: []string{fut.Handle().String()}}); err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
	}

	for _, fut := range futs {
		fields, err := fut.Wait(ctx)
		if err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if fields[0] != fut.Handle().String() {
			t.Fatalf("handle %d got payload %q", fut.Handle(), fields[0])
		}
	}
	if reg.Len() != 0 {
		t.Fatalf("Len = %d, want 0", reg.Len())
	}
}
