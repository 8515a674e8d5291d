package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestWindow(limit int, window time.Duration) (*SlidingWindow, *fakeClock, *[]time.Duration) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var slept []time.Duration
	w := NewSlidingWindow(limit, window)
	w.now = clk.now
	w.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		clk.advance(d)
		return nil
	}
	return w, clk, &slept
}

func TestSlidingWindow_AdmitsUpToLimit(t *testing.T) {
	t.Parallel()

	w, _, slept := newTestWindow(3, time.Minute)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Wait(context.Background()))
	}
	assert.Empty(t, *slept)
	assert.Equal(t, 3, w.InWindow())
}

func TestSlidingWindow_WaitsForOldestToExpire(t *testing.T) {
	t.Parallel()

	w, clk, slept := newTestWindow(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, w.Wait(ctx))
	clk.advance(20 * time.Second)
	require.NoError(t, w.Wait(ctx))

	require.NoError(t, w.Wait(ctx))
	require.Len(t, *slept, 1)
	assert.Equal(t, 40*time.Second, (*slept)[0])
	assert.Equal(t, 2, w.InWindow())
}

func TestSlidingWindow_ContextCancel(t *testing.T) {
	t.Parallel()

	w := PerMinute(1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Wait(ctx))

	cancel()
	assert.ErrorIs(t, w.Wait(ctx), context.Canceled)
}

func TestSlidingWindow_Disabled(t *testing.T) {
	t.Parallel()

	var nilWindow *SlidingWindow
	assert.NoError(t, nilWindow.Wait(context.Background()))
	assert.NoError(t, NewSlidingWindow(0, time.Minute).Wait(context.Background()))
}

func TestAdaptiveLimiter(t *testing.T) {
	t.Parallel()

	a := NewAdaptiveLimiter(4, 0)
	assert.Equal(t, rate.Limit(4), a.Limit())

	a.OnRateLimit()
	assert.Equal(t, rate.Limit(2), a.Limit())
	a.OnRateLimit()
	a.OnRateLimit()
	assert.Equal(t, rate.Limit(1), a.Limit(), "floor is a quarter of the start rate")

	for i := 0; i < 100; i++ {
		a.OnSuccess()
	}
	assert.Equal(t, rate.Limit(8), a.Limit(), "ceiling is twice the start rate")

	require.NoError(t, a.Wait(context.Background()))
}
