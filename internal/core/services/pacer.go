package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer spaces calls to an external source by a fixed interval.
// The first call passes immediately.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(interval time.Duration) *pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call may be made or ctx ends.
func (p *pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
