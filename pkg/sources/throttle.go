package sources

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/logging"
)

// Throttle spaces out requests to an external site: at most one request per
// MinDelay, plus a random extra pause so the request pattern does not look
// mechanical.
type Throttle struct {
	limiter  *rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration

	mu     sync.Mutex
	jitter func(n int64) int64
}

// NewThrottle creates a throttle waiting between minDelay and maxDelay
// before each request. A zero minDelay disables the rate limit.
func NewThrottle(minDelay, maxDelay time.Duration) *Throttle {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &Throttle{
		limiter:  rate.NewLimiter(limit, 1),
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   rand.Int64N,
	}
}

// Wait blocks until the next request may be sent or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	extra := t.extra()
	if extra <= 0 {
		return nil
	}
	logging.FromContext(ctx).Trace().Dur("delay", extra).Msg("Throttling request")

	timer := time.NewTimer(extra)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// extra returns the random pause on top of the rate limit, in [0, max-min].
func (t *Throttle) extra() time.Duration {
	span := int64(t.maxDelay - t.minDelay)
	if span <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.jitter(span + 1))
}

// WithThrottle waits on t before every fetch.
func WithThrottle(t *Throttle) Middleware {
	return func(next Source) Source {
		return fetchFunc{id: next.ID(), fn: func(ctx context.Context, ref string) (*genealogy.ExternalPerson, error) {
			if err := t.Wait(ctx); err != nil {
				return nil, err
			}
			return next.Fetch(ctx, ref)
		}}
	}
}
