package resilience

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter paces calls to a host that pushes back with 429s. The
// rate creeps up 10% per success to twice the initial rate and halves on
// each rate-limit response, never below a quarter of the initial rate.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	current rate.Limit
	floor   rate.Limit
	ceiling rate.Limit
}

// NewAdaptiveLimiter starts at perSecond events per second.
func NewAdaptiveLimiter(perSecond float64, burst int) *AdaptiveLimiter {
	r := rate.Limit(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(r, burst),
		current: r,
		floor:   r / 4,
		ceiling: r * 2,
	}
}

// Wait blocks until the next event is allowed.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess nudges the rate up.
func (a *AdaptiveLimiter) OnSuccess() {
	a.set(a.Limit() * 1.1)
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.set(a.Limit() / 2)
	zap.L().Warn("resilience: upstream rate limited, slowing down",
		zap.Float64("rate", float64(a.Limit())),
	)
}

// Limit returns the current events-per-second rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r = max(a.floor, min(r, a.ceiling))
	a.current = r
	a.limiter.SetLimit(r)
}
