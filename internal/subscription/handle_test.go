package subscription

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestHandle_Lifecycle(t *testing.T) {
	h := NewHandle(nil)

	if h.State() != StateIdle {
		t.Fatalf("State = %s, want idle", h.State())
	}
	if h.ID() == "" {
		t.Error("ID should not be empty")
	}

	var order []int
	if err := h.Activate(
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
		func() { order = append(order, 3) },
	); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if h.State() != StateActive {
		t.Fatalf("State = %s, want active", h.State())
	}

	if !h.Close(ReasonClientGone) {
		t.Fatal("first Close should return true")
	}

	if h.State() != StateClosed {
		t.Errorf("State = %s, want closed", h.State())
	}
	if h.Reason() != ReasonClientGone {
		t.Errorf("Reason = %q", h.Reason())
	}
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("release order = %v, want [3 2 1]", order)
	}
	if h.Released() != 3 {
		t.Errorf("Released = %d, want 3", h.Released())
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done should be closed")
	}

	want := []State{StateIdle, StateActive, StateClosing, StateClosed}
	got := h.Transitions()
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestHandle_CloseIsIdempotent(t *testing.T) {
	h := NewHandle(nil)

	var releases atomic.Int32
	h.Activate(func() { releases.Add(1) })

	if !h.Close(ReasonUpstreamError) {
		t.Fatal("first Close should return true")
	}
	if h.Close(ReasonClientGone) {
		t.Error("second Close should return false")
	}
	if releases.Load() != 1 {
		t.Errorf("releases = %d, want 1", releases.Load())
	}
	if h.Reason() != ReasonUpstreamError {
		t.Errorf("Reason = %q, want the first reason", h.Reason())
	}
}

func TestHandle_ConcurrentClose(t *testing.T) {
	h := NewHandle(nil)

	var releases atomic.Int32
	h.Activate(func() {
		time.Sleep(5 * time.Millisecond)
		releases.Add(1)
	})

	var wins atomic.Int32
	var wg sync.WaitGroup
	reasons := []string{ReasonClientGone, ReasonWriteFailed, ReasonUpstreamClosed, ReasonCancelled, ReasonShutdown}
	for _, r := range reasons {
		wg.Add(1)
		go func(reason string) {
			defer wg.Done()
			if h.Close(reason) {
				wins.Add(1)
			}
		}(r)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("Close returned true %d times, want 1", wins.Load())
	}
	if releases.Load() != 1 {
		t.Errorf("releases = %d, want 1", releases.Load())
	}
}

func TestHandle_CloseIdle(t *testing.T) {
	h := NewHandle(nil)

	if !h.Close(ReasonCancelled) {
		t.Fatal("Close on idle handle should return true")
	}

	want := []State{StateIdle, StateClosing, StateClosed}
	got := h.Transitions()
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, got[i], want[i])
		}
	}

	var order []int
	err := h.Activate(
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	)
	if err != ErrClosed {
		t.Errorf("Activate after Close = %v, want ErrClosed", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("late releases ran as %v, want [2 1]", order)
	}
	if h.Released() != 2 {
		t.Errorf("Released = %d, want 2", h.Released())
	}
	if h.State() != StateClosed {
		t.Errorf("State = %s, want closed", h.State())
	}
}

func TestHandle_ActivateTwice(t *testing.T) {
	h := NewHandle(nil)

	var releases atomic.Int32
	if err := h.Activate(func() { releases.Add(1) }); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := h.Activate(func() { releases.Add(10) }); err != ErrNotIdle {
		t.Errorf("second Activate = %v, want ErrNotIdle", err)
	}
	if releases.Load() != 0 {
		t.Errorf("releases ran before Close: %d", releases.Load())
	}

	h.Close(ReasonCancelled)
	if releases.Load() != 1 {
		t.Errorf("releases = %d, want 1", releases.Load())
	}
}

func TestHandle_ReleasePanicRecovered(t *testing.T) {
	h := NewHandle(nil)

	var ran atomic.Int32
	h.Activate(
		func() { ran.Add(1) },
		func() { panic("boom") },
	)

	h.Close(ReasonShutdown)

	if ran.Load() != 1 {
		t.Error("release after a panicking one should still run")
	}
	if h.Released() != 1 {
		t.Errorf("Released = %d, want 1", h.Released())
	}
	if h.State() != StateClosed {
		t.Errorf("State = %s, want closed", h.State())
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()

	var releases atomic.Int32
	handles := make([]*Handle, 3)
	for i := range handles {
		h := NewHandle(nil)
		h.Activate(func() { releases.Add(1) })
		r.Add(h)
		handles[i] = h
	}

	// One closes on its own first.
	handles[0].Close(ReasonClientGone)

	closed := r.CloseAll(ReasonShutdown)
	if closed > 2 {
		t.Errorf("CloseAll closed %d, want at most 2", closed)
	}
	if releases.Load() != 3 {
		t.Errorf("releases = %d, want 3", releases.Load())
	}
	for i, h := range handles {
		if h.State() != StateClosed {
			t.Errorf("handle %d state = %s", i, h.State())
		}
	}

	deadline := time.Now().Add(time.Second)
	for r.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after CloseAll, want 0", r.Len())
	}
}
