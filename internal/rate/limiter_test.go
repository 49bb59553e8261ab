package rate

import (
	"context"
	"testing"
	"time"
)

func newTestBucket(rps float64, burst int) (*TokenBucket, *time.Time) {
	tb := NewTokenBucket(rps, burst)
	now := time.Unix(1700000000, 0)
	tb.now = func() time.Time { return now }
	tb.last = now
	return tb, &now
}

func TestReserveBurstThenWaits(t *testing.T) {
	tb, _ := newTestBucket(2, 3)

	for i := range 3 {
		if d := tb.reserve(); d != 0 {
			t.Fatalf("call %d should be immediate, got wait %v", i+1, d)
		}
	}
	// Bucket empty: the next permit is half a second out at 2 rps.
	if d := tb.reserve(); d != 500*time.Millisecond {
		t.Fatalf("expected 500ms wait, got %v", d)
	}
	// Reservations queue: the one after that waits a full second.
	if d := tb.reserve(); d != time.Second {
		t.Fatalf("expected 1s wait, got %v", d)
	}
}

func TestRefillCapsAtBurst(t *testing.T) {
	tb, now := newTestBucket(2, 3)

	for range 3 {
		tb.reserve()
	}
	*now = now.Add(10 * time.Second)
	tb.mu.Lock()
	tb.refill()
	tokens := tb.tokens
	tb.mu.Unlock()
	if tokens != 3 {
		t.Fatalf("expected refill capped at burst 3, got %v", tokens)
	}
}

func TestUnreserveReturnsToken(t *testing.T) {
	tb, _ := newTestBucket(1, 1)

	if d := tb.reserve(); d != 0 {
		t.Fatalf("first reserve should be immediate, got %v", d)
	}
	if d := tb.reserve(); d != time.Second {
		t.Fatalf("expected 1s wait, got %v", d)
	}
	tb.unreserve()
	if d := tb.reserve(); d != time.Second {
		t.Fatalf("expected 1s wait after unreserve, got %v", d)
	}
}

func TestWaitImmediateWhenTokensAvailable(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	tb := NewTokenBucket(0.5, 1)
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error draining bucket: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tb.Wait(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestWaitPreCancelled(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tb.Wait(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
