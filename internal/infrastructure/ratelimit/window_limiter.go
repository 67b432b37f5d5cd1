package ratelimit

import (
	"context"
	"sync"
	"time"
)

// WindowLimiter grants at most limit permits in any rolling window of the given length.
// Callers reserve slots in arrival order under the mutex and then sleep until their slot,
// so concurrent callers are served first-come first-served.
type WindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	grants []time.Time // last `limit` grant times, oldest first
	now    func() time.Time
}

// NewWindowLimiter creates a limiter allowing limit permits per window.
// A non-positive limit is treated as 1.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &WindowLimiter{
		limit:  limit,
		window: window,
		grants: make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

// Wait blocks until a permit is available or ctx is done.
// A reservation abandoned through ctx still counts against the window.
func (l *WindowLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	slot := l.reserve()
	delay := slot.Sub(l.now())
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve books the earliest instant at which a new permit keeps the window within limit.
func (l *WindowLimiter) reserve() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := l.now()
	if len(l.grants) == l.limit {
		if earliest := l.grants[0].Add(l.window); earliest.After(slot) {
			slot = earliest
		}
		l.grants = append(l.grants[:0], l.grants[1:]...)
	}
	l.grants = append(l.grants, slot)
	return slot
}

// Limit returns the number of permits per window.
func (l *WindowLimiter) Limit() int {
	return l.limit
}

// Window returns the rolling window length.
func (l *WindowLimiter) Window() time.Duration {
	return l.window
}
