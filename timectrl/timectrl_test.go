package timectrl

import (
	"sync"
	"testing"
	"time"
)

func TestNowAndSetTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, Accelerated)

	if got := tc.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want start %v", got, start)
	}

	jump := start.Add(90 * time.Minute)
	tc.SetTime(jump)
	if got := tc.Now(); !got.Equal(jump) {
		t.Fatalf("Now() after SetTime = %v, want %v", got, jump)
	}
}

func TestAcceleratedRun(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Minute, Accelerated)

	var mu sync.Mutex
	var ticks []time.Time
	tc.AddListener(func(now time.Time) {
		mu.Lock()
		ticks = append(ticks, now)
		mu.Unlock()
	})

	select {
	case <-tc.Start(5 * time.Minute):
	case <-time.After(5 * time.Second):
		t.Fatal("accelerated run did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 5 {
		t.Fatalf("got %d ticks, want 5", len(ticks))
	}
	for i, tick := range ticks {
		want := start.Add(time.Duration(i+1) * time.Minute)
		if !tick.Equal(want) {
			t.Fatalf("tick %d = %v, want %v", i, tick, want)
		}
	}
	if got := tc.Now(); !got.Equal(start.Add(5 * time.Minute)) {
		t.Fatalf("Now() after run = %v", got)
	}
}

func TestListenersSeeMonotonicTime(t *testing.T) {
	tc := NewTimeController(time.Unix(0, 0), time.Second, Accelerated)

	var mu sync.Mutex
	last := time.Time{}
	ordered := true
	tc.AddListener(func(now time.Time) {
		mu.Lock()
		if !now.After(last) {
			ordered = false
		}
		last = now
		mu.Unlock()
	})

	select {
	case <-tc.Start(10 * time.Second):
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if !ordered {
		t.Fatal("listener observed non-monotonic simulation time")
	}
}
