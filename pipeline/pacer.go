package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer gates outgoing product requests. One Pacer shared by every worker
// caps the aggregate request rate regardless of worker count.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer admits at most one request per interval.
type IntervalPacer struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// NewIntervalPacer returns a pacer admitting one request per interval. The
// first request also waits a full interval. A zero interval disables pacing.
func NewIntervalPacer(interval time.Duration) *IntervalPacer {
	if interval <= 0 {
		return &IntervalPacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow()
	return &IntervalPacer{interval: interval, limiter: limiter}
}

// Wait blocks until the next request may start or ctx is done.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Interval reports the configured spacing between requests.
func (p *IntervalPacer) Interval() time.Duration {
	return p.interval
}
