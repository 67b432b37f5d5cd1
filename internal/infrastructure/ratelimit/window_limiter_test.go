package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestWindowLimiter_BurstUpToLimit(t *testing.T) {
	rl := NewWindowLimiter(3, time.Second)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first %d permits should be immediate, took %v", 3, elapsed)
	}
}

func TestWindowLimiter_BlocksBeyondLimit(t *testing.T) {
	window := 150 * time.Millisecond
	rl := NewWindowLimiter(2, window)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// Allow a little scheduler slack below the window.
	if elapsed < window-10*time.Millisecond {
		t.Errorf("third permit granted after %v, want at least %v", elapsed, window)
	}
}

func TestWindowLimiter_NeverExceedsLimitInWindow(t *testing.T) {
	const (
		limit   = 3
		callers = 9
	)
	window := 200 * time.Millisecond
	rl := NewWindowLimiter(limit, window)

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rl.Wait(context.Background()); err != nil {
				t.Errorf("Wait failed: %v", err)
				return
			}
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i := limit; i < len(times); i++ {
		gap := times[i].Sub(times[i-limit])
		if gap < window-30*time.Millisecond {
			t.Errorf("permits %d and %d only %v apart, want >= %v", i-limit, i, gap, window)
		}
	}
}

func TestWindowLimiter_ContextCancel(t *testing.T) {
	rl := NewWindowLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected context error while waiting for an exhausted window")
	}
}

func TestWindowLimiter_Reserve_FIFOSlots(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewWindowLimiter(2, time.Minute)
	rl.now = func() time.Time { return base }

	want := []time.Time{base, base, base.Add(time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute)}
	for i, w := range want {
		if got := rl.reserve(); !got.Equal(w) {
			t.Errorf("reserve #%d = %v, want %v", i, got, w)
		}
	}
}

func TestNewWindowLimiter_NonPositiveLimit(t *testing.T) {
	rl := NewWindowLimiter(0, time.Second)
	if rl.Limit() != 1 {
		t.Errorf("Limit() = %d, want 1", rl.Limit())
	}
	if rl.Window() != time.Second {
		t.Errorf("Window() = %v, want %v", rl.Window(), time.Second)
	}
}
