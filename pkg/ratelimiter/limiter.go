package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate.Limiter so upstream callers block
// before each request instead of discovering the limit through HTTP 429s.
type RateLimiter struct {
	limiter *rate.Limiter
	burst   int
	rps     int
}

// NewRateLimiter creates a rate limiter from requests-per-second and burst size.
func NewRateLimiter(rps int, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		burst:   burst,
		rps:     rps,
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// TryAcquire attempts to acquire a token without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	return rl.limiter.Allow()
}

// Stats returns the approximate number of available tokens, the bucket
// capacity, and the token generation interval.
func (rl *RateLimiter) Stats() (available, capacity int, rateDuration time.Duration) {
	available = int(rl.limiter.Tokens())
	if available < 0 {
		available = 0
	}
	capacity = rl.burst
	rateDuration = time.Second / time.Duration(rl.rps)
	return
}
