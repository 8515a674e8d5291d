package resilience

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow admits at most Limit calls in any trailing Window. Callers
// over the limit sleep until the oldest admitted call leaves the window and
// then check again, so bursts never exceed the limit.
type SlidingWindow struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	calls []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSlidingWindow returns a limiter admitting limit calls per window.
// A limit below one disables limiting.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// PerMinute is NewSlidingWindow with a one minute window.
func PerMinute(limit int) *SlidingWindow {
	return NewSlidingWindow(limit, time.Minute)
}

// Wait blocks until a call is admitted or ctx is done.
func (w *SlidingWindow) Wait(ctx context.Context) error {
	if w == nil || w.limit < 1 {
		return nil
	}
	for {
		d := w.reserve()
		if d <= 0 {
			return nil
		}
		if err := w.sleep(ctx, d); err != nil {
			return err
		}
	}
}

// InWindow returns the number of calls admitted in the trailing window.
func (w *SlidingWindow) InWindow() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.calls)
}

// reserve records a call and returns zero, or returns how long to wait
// before trying again.
func (w *SlidingWindow) reserve() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	if len(w.calls) < w.limit {
		w.calls = append(w.calls, now)
		return 0
	}
	wait := w.window - now.Sub(w.calls[0])
	if wait <= 0 {
		// Oldest entry expires at exactly now; prune on the next pass.
		wait = time.Millisecond
	}
	return wait
}

func (w *SlidingWindow) prune(now time.Time) {
	i := 0
	for i < len(w.calls) && now.Sub(w.calls[i]) >= w.window {
		i++
	}
	w.calls = w.calls[i:]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
