package registry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/wippyai/ledger-bridge/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnCallEvent(e Event) {
	o.events = append(o.events, e)
}

func decodeFirst(fields []string) (string, error) {
	if len(fields) != 1 {
		return "", stderrors.New("expected one field")
	}
	return fields[0], nil
}

func TestBegin_UniqueHandles(t *testing.T) {
	reg := New()
	seen := make(map[Handle]bool)

	for i := 0; i < 1000; i++ {
		h, fut, err := Begin(reg, "op", decodeFirst)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if h == 0 {
			t.Fatal("Begin issued reserved handle 0")
		}
		if seen[h] {
			t.Fatalf("handle %d issued twice", h)
		}
		if fut.Handle() != h {
			t.Fatalf("future bound to %d, want %d", fut.Handle(), h)
		}
		seen[h] = true
	}

	if reg.Len() != 1000 {
		t.Fatalf("Len = %d, want 1000", reg.Len())
	}
}

func TestComplete_ResolvesExactPayload(t *testing.T) {
	reg := New()
	reg.next = 6

	h, fut, err := Begin(reg, "build_get_nym_request", decodeFirst)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if h != 7 {
		t.Fatalf("handle = %d, want 7", h)
	}

	payload := `{"id":"abc"}`
	if err := reg.Complete(7, []string{payload}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	got, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got != payload {
		t.Fatalf("result = %q, want %q", got, payload)
	}

	err = reg.Complete(7, []string{"again"})
	if !errors.IsKind(err, errors.KindUnknownHandle) {
		t.Fatalf("second Complete = %v, want unknown_handle", err)
	}

	got, err = fut.Wait(context.Background())
	if err != nil || got != payload {
		t.Fatalf("first result corrupted: %q, %v", got, err)
	}
}

func TestSingleResolution(t *testing.T) {
	type step func(reg *Registry, h Handle) error

	complete := func(reg *Registry, h Handle) error { return reg.Complete(h, []string{"ok"}) }
	fail := func(reg *Registry, h Handle) error { return reg.Fail(h, errors.FromCode(uint32(h), errors.CommonIOError)) }
	cancel := func(reg *Registry, h Handle) error { return reg.Cancel(h) }

	tests := []struct {
		first    step
		second   step
		name     string
		wantErr  bool
		wantKind errors.Kind
	}{
		{complete, complete, "complete then complete", false, ""},
		{complete, fail, "complete then fail", false, ""},
		{complete, cancel, "complete then cancel", false, ""},
		{fail, complete, "fail then complete", true, errors.KindEngineError},
		{fail, cancel, "fail then cancel", true, errors.KindEngineError},
		{cancel, complete, "cancel then complete", true, errors.KindCancelled},
		{cancel, fail, "cancel then fail", true, errors.KindCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New()
			h, fut, _ := Begin(reg, "op", decodeFirst)

			if err := tt.first(reg, h); err != nil {
				t.Fatalf("first resolution failed: %v", err)
			}
			if err := tt.second(reg, h); !errors.IsKind(err, errors.KindUnknownHandle) {
				t.Fatalf("second resolution = %v, want unknown_handle", err)
			}

			val, err, done := fut.Result()
			if !done {
				t.Fatal("future should be resolved")
			}
			if tt.wantErr {
				if !errors.IsKind(err, tt.wantKind) {
					t.Fatalf("err = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil || val != "ok" {
				t.Fatalf("result = %q, %v", val, err)
			}
		})
	}
}

func TestFuture_SecondAssignmentRejected(t *testing.T) {
	reg := New()
	_, fut, _ := Begin(reg, "op", decodeFirst)

	if _, assigned := fut.resolve([]string{"first"}, nil); !assigned {
		t.Fatal("first assignment should succeed")
	}
	err, assigned := fut.resolve([]string{"second"}, nil)
	if assigned {
		t.Fatal("second assignment should be rejected")
	}
	if !errors.IsKind(err, errors.KindAlreadyResolved) {
		t.Fatalf("err = %v, want already_resolved", err)
	}

	val, rerr, _ := fut.Result()
	if rerr != nil || val != "first" {
		t.Fatalf("result = %q, %v; want first", val, rerr)
	}
}

func TestRelease_NoLeak(t *testing.T) {
	reg := New()
	before := reg.Len()

	h, fut, _ := Begin(reg, "submit_request", decodeFirst)
	rejection := errors.Rejected(uint32(h), errors.PoolLedgerInvalidPoolHandle)
	if err := reg.Release(h, rejection); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if reg.Len() != before {
		t.Fatalf("Len = %d after release, want %d", reg.Len(), before)
	}
	_, err, done := fut.Result()
	if !done {
		t.Fatal("released future left unresolved")
	}
	if !errors.IsKind(err, errors.KindRejected) {
		t.Fatalf("err = %v, want rejected", err)
	}
	if reg.Stats().Released != 1 {
		t.Fatalf("Released = %d, want 1", reg.Stats().Released)
	}
}

func TestUnknownHandle(t *testing.T) {
	reg := New()
	obs := &testObserver{}
	reg.Subscribe(obs)

	h, fut, _ := Begin(reg, "op", decodeFirst)

	tests := []struct {
		call func() error
		name string
	}{
		{func() error { return reg.Complete(h+100, []string{"x"}) }, "complete never issued"},
		{func() error { return reg.Fail(h+100, nil) }, "fail never issued"},
		{func() error { return reg.Release(0, nil) }, "release reserved"},
		{func() error { return reg.Deliver(h+1, errors.Success, nil) }, "deliver never issued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.IsKind(err, errors.KindUnknownHandle) {
				t.Fatalf("err = %v, want unknown_handle", err)
			}
		})
	}

	if _, _, done := fut.Result(); done {
		t.Fatal("unrelated future was resolved")
	}
	if reg.Len() != 1 {
		t.Fatalf("Len = %d, want 1", reg.Len())
	}
	if got := reg.Stats().Anomalies; got != 4 {
		t.Fatalf("Anomalies = %d, want 4", got)
	}

	anomalies := 0
	for _, e := range obs.events {
		if e.Type == EventAnomaly {
			anomalies++
		}
	}
	if anomalies != 4 {
		t.Fatalf("observed %d anomaly events, want 4", anomalies)
	}
}

func TestCancel_LosingRaceIsNotAnomaly(t *testing.T) {
	reg := New()
	h, _, _ := Begin(reg, "op", decodeFirst)
	_ = reg.Complete(h, []string{"x"})

	if err := reg.Cancel(h); !errors.IsKind(err, errors.KindUnknownHandle) {
		t.Fatalf("Cancel = %v, want unknown_handle", err)
	}
	if reg.Stats().Anomalies != 0 {
		t.Fatal("losing cancel should not count as anomaly")
	}
}

func TestDeliver_RoutesByCode(t *testing.T) {
	reg := New()

	h1, ok, _ := Begin(reg, "op", decodeFirst)
	h2, bad, _ := Begin(reg, "op", decodeFirst)

	if err := reg.Deliver(h1, errors.Success, []string{"done"}); err != nil {
		t.Fatalf("Deliver success: %v", err)
	}
	if err := reg.Deliver(h2, errors.LedgerNoConsensus, nil); err != nil {
		t.Fatalf("Deliver failure: %v", err)
	}

	if v, err := ok.Wait(context.Background()); err != nil || v != "done" {
		t.Fatalf("success result = %q, %v", v, err)
	}

	_, err := bad.Wait(context.Background())
	if !errors.IsKind(err, errors.KindEngineError) {
		t.Fatalf("err = %v, want engine_error", err)
	}
	if errors.CodeOf(err) != errors.LedgerNoConsensus {
		t.Fatalf("code = %v, want LedgerNoConsensus", errors.CodeOf(err))
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Class() != errors.ClassLedger {
		t.Fatalf("class = %v, want ledger", e.Class())
	}
}

func TestComplete_DecodeFailureFailsFuture(t *testing.T) {
	reg := New()
	h, fut, _ := Begin(reg, "op", decodeFirst)

	if err := reg.Complete(h, []string{"a", "b"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	_, err := fut.Wait(context.Background())
	if !errors.IsKind(err, errors.KindInvalidData) {
		t.Fatalf("err = %v, want invalid_data", err)
	}
	if reg.Stats().Failed != 1 {
		t.Fatalf("Failed = %d, want 1", reg.Stats().Failed)
	}
}

func TestBegin_NilDecoderRawFields(t *testing.T) {
	reg := New()
	h, fut, _ := Begin[[]string](reg, "op", nil)
	_ = reg.Complete(h, []string{"id", "{}"})

	got, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(got) != 2 || got[0] != "id" {
		t.Fatalf("fields = %v", got)
	}
}

func TestWait_ContextCancelsCall(t *testing.T) {
	reg := New()
	h, fut, _ := Begin(reg, "op", decodeFirst)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fut.Wait(ctx)
	if !errors.IsKind(err, errors.KindCancelled) {
		t.Fatalf("err = %v, want cancelled", err)
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, should wrap deadline exceeded", err)
	}
	if reg.Len() != 0 {
		t.Fatal("cancelled call left in table")
	}

	if err := reg.Complete(h, []string{"late"}); !errors.IsKind(err, errors.KindUnknownHandle) {
		t.Fatalf("late completion = %v, want unknown_handle", err)
	}
}

func TestAllocate_WrapSkipsOutstanding(t *testing.T) {
	reg := New()
	reg.maxHandle = 4

	h1, _, _ := Begin(reg, "a", decodeFirst)
	h2, _, _ := Begin(reg, "b", decodeFirst)
	h3, _, _ := Begin(reg, "c", decodeFirst)
	h4, _, _ := Begin(reg, "d", decodeFirst)
	if h1 != 1 || h2 != 2 || h3 != 3 || h4 != 4 {
		t.Fatalf("handles = %d %d %d %d", h1, h2, h3, h4)
	}

	_ = reg.Complete(h2, []string{"x"})
	h5, _, _ := Begin(reg, "e", decodeFirst)
	if h5 != 2 {
		t.Fatalf("after wrap got %d, want 2 (1 is outstanding)", h5)
	}
}

func TestAllocate_ExhaustionPanics(t *testing.T) {
	reg := New()
	reg.maxHandle = 2
	Begin(reg, "a", decodeFirst)
	Begin(reg, "b", decodeFirst)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on handle exhaustion")
		}
	}()
	Begin(reg, "c", decodeFirst)
}

func TestClose(t *testing.T) {
	reg := New()
	obs := &testObserver{}
	_, f1, _ := Begin(reg, "a", decodeFirst)
	_, f2, _ := Begin(reg, "b", decodeFirst)
	reg.Subscribe(obs)

	if n := reg.Close(); n != 2 {
		t.Fatalf("Close drained %d, want 2", n)
	}
	stats := reg.Stats()
	if stats.Closed != 2 || stats.Cancelled != 0 {
		t.Fatalf("Closed = %d, Cancelled = %d, want 2 and 0", stats.Closed, stats.Cancelled)
	}
	if len(obs.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(obs.events))
	}
	for _, e := range obs.events {
		if e.Type != EventClosed {
			t.Fatalf("event = %v, want closed", e.Type)
		}
	}
	for _, f := range []*Future[string]{f1, f2} {
		_, err, done := f.Result()
		if !done || !errors.IsKind(err, errors.KindClosed) {
			t.Fatalf("future after close: done=%v err=%v", done, err)
		}
	}

	if _, _, err := Begin(reg, "c", decodeFirst); !errors.IsKind(err, errors.KindClosed) {
		t.Fatalf("Begin after close = %v, want closed", err)
	}
	if !reg.Closed() {
		t.Fatal("Closed should report true")
	}
	if n := reg.Close(); n != 0 {
		t.Fatalf("second Close drained %d, want 0", n)
	}
}

func TestDrain(t *testing.T) {
	reg := New()
	if err := reg.Drain(context.Background()); err != nil {
		t.Fatalf("Drain on empty registry: %v", err)
	}

	h, _, _ := Begin(reg, "a", decodeFirst)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := reg.Drain(ctx); !errors.IsKind(err, errors.KindTimeout) {
		t.Fatalf("Drain with outstanding call = %v, want timeout", err)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = reg.Complete(h, []string{"x"})
	}()
	if err := reg.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
}

func TestReap(t *testing.T) {
	reg := NewWithConfig(&Config{MaxAge: time.Minute})
	base := time.Unix(1000, 0)
	reg.now = func() time.Time { return base }

	hOld, old, _ := Begin(reg, "old", decodeFirst)
	reg.now = func() time.Time { return base.Add(50 * time.Second) }
	_, young, _ := Begin(reg, "young", decodeFirst)

	if n := reg.Reap(base.Add(90 * time.Second)); n != 1 {
		t.Fatalf("Reap = %d, want 1", n)
	}
	if _, err, done := old.Result(); !done || !errors.IsKind(err, errors.KindTimeout) {
		t.Fatalf("old call: done=%v err=%v", done, err)
	}
	if _, _, done := young.Result(); done {
		t.Fatal("young call should still be pending")
	}
	if err := reg.Complete(hOld, []string{"late"}); !errors.IsKind(err, errors.KindUnknownHandle) {
		t.Fatalf("late completion = %v, want unknown_handle", err)
	}

	entries := reg.Outstanding()
	if len(entries) != 1 || entries[0].Label != "young" {
		t.Fatalf("Outstanding = %+v", entries)
	}
	if entries[0].Age != 0 {
		t.Fatalf("Age = %v, want 0 at fixed clock", entries[0].Age)
	}
}

func TestReap_Disabled(t *testing.T) {
	reg := New()
	Begin(reg, "a", decodeFirst)
	if n := reg.Reap(time.Now().Add(time.Hour)); n != 0 {
		t.Fatalf("Reap with MaxAge 0 reclaimed %d", n)
	}
	if err := reg.Run(context.Background()); err != nil {
		t.Fatalf("Run with MaxAge 0 = %v", err)
	}
}

func TestRun_ReclaimsAbandonedCalls(t *testing.T) {
	reg := NewWithConfig(&Config{MaxAge: 5 * time.Millisecond, ReapInterval: time.Millisecond})
	_, fut, _ := Begin(reg, "a", decodeFirst)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reg.Run(ctx)

	select {
	case <-fut.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not reclaim call")
	}
	if _, err, _ := fut.Result(); !errors.IsKind(err, errors.KindTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestObserver(t *testing.T) {
	reg := New()
	obs := &testObserver{}
	reg.Subscribe(obs)

	h, _, _ := Begin(reg, "build_nym_request", decodeFirst)
	_ = reg.Complete(h, []string{"x"})

	if len(obs.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventBegun || obs.events[0].Handle != h {
		t.Fatalf("first event = %+v", obs.events[0])
	}
	if obs.events[1].Type != EventCompleted || obs.events[1].Label != "build_nym_request" {
		t.Fatalf("second event = %+v", obs.events[1])
	}

	reg.Unsubscribe(obs)
	Begin(reg, "op", decodeFirst)
	if len(obs.events) != 2 {
		t.Fatal("should not receive events after Unsubscribe")
	}
}

func TestUnsubscribe_RemovesOnlyGivenObserver(t *testing.T) {
	reg := New()
	a, b := &testObserver{}, &testObserver{}
	reg.Subscribe(a)
	reg.Subscribe(b)

	reg.Unsubscribe(&testObserver{})
	reg.Unsubscribe(a)
	reg.Unsubscribe(a)

	Begin(reg, "op", decodeFirst)
	if len(a.events) != 0 {
		t.Fatalf("unsubscribed observer got %d events", len(a.events))
	}
	if len(b.events) != 1 {
		t.Fatalf("remaining observer got %d events, want 1", len(b.events))
	}
}

func TestEventType_String(t *testing.T) {
	if EventAnomaly.String() != "anomaly" {
		t.Errorf("got %q", EventAnomaly.String())
	}
	if EventClosed.String() != "closed" {
		t.Errorf("got %q", EventClosed.String())
	}
	if EventType(99).String() != "unknown" {
		t.Errorf("got %q", EventType(99).String())
	}
}

func BenchmarkBeginComplete(b *testing.B) {
	reg := New()
	fields := []string{"payload"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, _, _ := Begin(reg, "op", decodeFirst)
		_ = reg.Complete(h, fields)
	}
}
