package engine

import (
	"context"
	"math/rand"
	"time"
)

// backoff is the retry delay state machine: each Next records one failed
// attempt and yields the pause before the next try, until attempts run out.
// It never sleeps and holds no clock, so the bounds are testable in
// isolation.
type backoff struct {
	base       time.Duration
	max        time.Duration
	maxRetries int
	attempt    int
	rng        *rand.Rand
}

func newBackoff(base, max time.Duration, maxRetries int, rng *rand.Rand) *backoff {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if max < base {
		max = base
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &backoff{base: base, max: max, maxRetries: maxRetries, rng: rng}
}

// Next returns the delay before the next attempt: base × 2^attempt, capped
// at max, plus jitter in [0, base). ok is false once retries are exhausted.
func (b *backoff) Next() (delay time.Duration, ok bool) {
	if b.attempt >= b.maxRetries {
		return 0, false
	}
	d := b.base << b.attempt
	if d > b.max || d < 0 {
		d = b.max
	}
	d += time.Duration(b.rng.Int63n(int64(b.base)))
	b.attempt++
	return d, true
}

// Retries reports how many retry delays have been handed out.
func (b *backoff) Retries() int {
	return b.attempt
}

// Reset rewinds the machine after a success so subsequent failures start
// from the base delay again.
func (b *backoff) Reset() {
	b.attempt = 0
}

// sleep pauses for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
