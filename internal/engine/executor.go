package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/joshsymonds/emailmanager/internal/gmail"
	"github.com/joshsymonds/emailmanager/internal/rate"
)

// Deleter is the mutating slice of gmail.Client the executor needs.
type Deleter interface {
	BatchTrash(ctx context.Context, ids []gmail.MessageID) (gmail.TrashResult, error)
}

// Executor runs one batch against the rate-limited delete endpoint,
// retrying transient failures with capped exponential backoff. Exactly one
// limiter permit is consumed per network attempt; dry-run consumes none.
type Executor struct {
	Deleter    Deleter
	Limiter    rate.Limiter
	Logger     *slog.Logger
	DryRun     bool
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Sleep pauses between attempts; tests swap it out.
	Sleep func(ctx context.Context, d time.Duration) error

	rng *rand.Rand
}

// Execute drives b to a terminal outcome. Cancellation is honored before
// each attempt and during backoff, but never interrupts a call already in
// flight: an ambiguous half-delivered delete is worse than a late one.
func (x *Executor) Execute(ctx context.Context, b Batch) Outcome {
	if x.DryRun {
		return Outcome{Batch: b.Seq, Kind: OutcomeSimulated, Deleted: len(b.IDs)}
	}
	bo := newBackoff(x.BaseDelay, x.MaxDelay, x.MaxRetries, x.rng)
	for {
		if err := x.Limiter.Wait(ctx); err != nil {
			// Nothing was sent for this batch.
			return Outcome{
				Batch:   b.Seq,
				Kind:    OutcomeSkipped,
				ErrKind: KindCancelled,
				Skipped: len(b.IDs),
				Retries: bo.Retries(),
				Err:     err,
			}
		}
		res, err := x.Deleter.BatchTrash(context.WithoutCancel(ctx), b.IDs)
		if err == nil {
			return outcomeFromResult(b, res, bo.Retries())
		}

		kind := Classify(err)
		if !kind.Retryable() {
			return Outcome{
				Batch:   b.Seq,
				Kind:    OutcomeFailed,
				ErrKind: kind,
				Failed:  len(b.IDs),
				Retries: bo.Retries(),
				Err:     err,
			}
		}
		delay, ok := bo.Next()
		if !ok {
			x.Logger.Warn("batch retries exhausted",
				"batch", b.Seq, "size", len(b.IDs), "error", err)
			return Outcome{
				Batch:   b.Seq,
				Kind:    OutcomeFailed,
				ErrKind: KindTransient,
				Failed:  len(b.IDs),
				Retries: bo.Retries(),
				Err:     err,
			}
		}
		x.Logger.Warn("batch delete failed, backing off",
			"batch", b.Seq, "delay", delay, "attempt", bo.Retries(), "error", err)
		if serr := x.Sleep(ctx, delay); serr != nil {
			return Outcome{
				Batch:   b.Seq,
				Kind:    OutcomeFailed,
				ErrKind: KindCancelled,
				Failed:  len(b.IDs),
				Retries: bo.Retries(),
				Err:     serr,
			}
		}
	}
}

// outcomeFromResult folds a per-id result map into an outcome. IDs the
// server reported as already gone count as deleted; they are never
// resubmitted and never retried.
func outcomeFromResult(b Batch, res gmail.TrashResult, retries int) Outcome {
	out := Outcome{
		Batch:   b.Seq,
		Kind:    OutcomeSucceeded,
		Deleted: len(res.Done),
		Retries: retries,
	}
	for id, err := range res.Failed {
		if Classify(err) == KindNotFound {
			out.Deleted++
			out.AlreadyGone++
			continue
		}
		if out.FailedIDs == nil {
			out.FailedIDs = make(map[gmail.MessageID]Kind, len(res.Failed))
		}
		out.FailedIDs[id] = Classify(err)
		out.Failed++
	}
	if out.Failed > 0 {
		out.Kind = OutcomePartial
	}
	return out
}
