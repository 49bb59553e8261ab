// Package rate gates outbound API calls so we respect Gmail rate limits.
package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter hands out permits for outbound calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket is a continuous-refill token bucket: the bucket gains rps
// tokens per second up to burst, and each Wait consumes exactly one.
// Construct one per run and pass it in; there is no package-level instance.
type TokenBucket struct {
	mu     sync.Mutex
	rps    float64
	burst  float64
	tokens float64
	last   time.Time

	now func() time.Time
}

// NewTokenBucket returns a limiter sustaining rps calls per second with the
// given burst capacity. The bucket starts full, so the first burst calls
// proceed immediately.
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	tb := &TokenBucket{
		rps:    rps,
		burst:  float64(burst),
		tokens: float64(burst),
		now:    time.Now,
	}
	tb.last = tb.now()
	return tb
}

// Wait blocks until a permit is available or the context is canceled.
// Permits are reserved up front, so concurrent waiters are served in
// bounded time regardless of arrival order.
func (t *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rate wait canceled: %w", err)
	}
	d := t.reserve()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		t.unreserve()
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// reserve takes one token, letting the balance go negative, and returns how
// long the caller must wait for its reservation to come due.
func (t *TokenBucket) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refill()
	t.tokens--
	if t.tokens >= 0 {
		return 0
	}
	return time.Duration(-t.tokens / t.rps * float64(time.Second))
}

// unreserve returns a token taken by a canceled waiter.
func (t *TokenBucket) unreserve() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens++
}

// refill credits tokens for the time elapsed since the last update.
// Callers must hold mu.
func (t *TokenBucket) refill() {
	now := t.now()
	elapsed := now.Sub(t.last).Seconds()
	t.last = now
	t.tokens += elapsed * t.rps
	if t.tokens > t.burst {
		t.tokens = t.burst
	}
}

var _ Limiter = (*TokenBucket)(nil)
