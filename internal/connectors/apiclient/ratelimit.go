package apiclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBackoff is used when a 429 response carries no Retry-After.
const DefaultBackoff = 60 * time.Second

// RateLimiter throttles requests with a token bucket and honours the backoff
// a source asks for after a 429 response.
type RateLimiter struct {
	mu             sync.Mutex
	limiter        *rate.Limiter
	retryAt        time.Time
	defaultBackoff time.Duration
}

// NewRateLimiter creates a limiter. A non-positive rps means no throttling.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter:        rate.NewLimiter(limit, burst),
		defaultBackoff: DefaultBackoff,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by Backoff.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// Backoff pauses every request until the given delay has passed.
// A non-positive delay uses the default backoff.
func (r *RateLimiter) Backoff(d time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d <= 0 {
		d = r.defaultBackoff
	}
	r.retryAt = time.Now().Add(d)
	return d
}
