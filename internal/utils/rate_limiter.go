// internal/utils/rate_limiter.go
package utils

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimiter paces a loop to a number of events per second with no burst
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows eventsPerSecond events. A non-positive or infinite
// rate disables limiting.
func NewRateLimiter(eventsPerSecond float64) *RateLimiter {
	limit := rate.Limit(eventsPerSecond)
	if eventsPerSecond <= 0 || math.IsInf(eventsPerSecond, 1) {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next event is allowed or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now and consumes it if so
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Unlimited reports whether the limiter lets everything through
func (rl *RateLimiter) Unlimited() bool {
	return rl.limiter.Limit() == rate.Inf
}
