package tianapi

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket algorithm for rate limiting.
// It keeps the process-wide call rate under the upstream quota even when
// several sweeps and single-feed requests run at the same time.
type RateLimiter struct {
	rate    rate.Limit
	burst   int
	limiter *rate.Limiter
}

// NewRateLimiter creates a new RateLimiter with the specified rate and burst capacity.
//
// The token bucket allows up to 'burst' calls immediately,
// then refills tokens at 'requestsPerSecond' rate.
// A non-positive rate disables limiting.
//
// Example:
//
//	limiter := NewRateLimiter(1.0, 1)  // 1 req/s, no burst
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	r := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		r = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		rate:    r,
		burst:   burst,
		limiter: rate.NewLimiter(r, burst),
	}
}

// Allow blocks until a token is available or the context is canceled.
// It should be called before every upstream request.
func (r *RateLimiter) Allow(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Limit returns the configured sustained rate.
func (r *RateLimiter) Limit() rate.Limit {
	return r.rate
}
