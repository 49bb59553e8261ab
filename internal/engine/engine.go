// Package engine turns an unbounded, server-paginated listing into a
// sequence of rate-limited batch deletions with bounded retries.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joshsymonds/emailmanager/internal/gmail"
	"github.com/joshsymonds/emailmanager/internal/rate"
)

// Defaults follow Gmail quota guidance: small batches, page size 100,
// backoff from 2s up to 2m.
const (
	DefaultBatchSize  = 20
	MaxBatchSize      = 25
	DefaultPageSize   = 100
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 2 * time.Second
	DefaultMaxDelay   = 120 * time.Second
	DefaultWorkers    = 1
	MaxWorkers        = 4
)

// Options tunes a single run. The zero value of a field selects its
// default, except MaxRetries where 0 genuinely means "no retries"
// (negative selects the default).
type Options struct {
	DryRun     bool
	BatchSize  int
	PageSize   int
	MaxRetries int
	Workers    int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchSize > MaxBatchSize {
		o.BatchSize = MaxBatchSize
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	return o
}

// Engine composes pager, batcher and executor into the single public entry
// point. It keeps no state between runs; the limiter is the only shared
// mutable piece, and it is passed in.
type Engine struct {
	Client   gmail.Client
	Limiter  rate.Limiter
	Logger   *slog.Logger
	Reporter ProgressReporter
	Clock    func() time.Time

	// Sleep paces backoff waits; tests swap it out.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand seeds backoff jitter; tests pin it.
	Rand *rand.Rand
}

// New constructs an Engine with sane defaults.
func New(client gmail.Client, limiter rate.Limiter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Engine{
		Client:   client,
		Limiter:  limiter,
		Logger:   logger,
		Reporter: nopReporter{},
		Clock:    time.Now,
		Sleep:    sleep,
	}
}

// Run deletes every message matching q, in batches, until the listing is
// exhausted, a fatal error occurs or ctx is cancelled. The returned summary
// always accounts for every batch outcome produced.
func (e *Engine) Run(ctx context.Context, q gmail.Query, opts Options) Summary {
	opts = opts.withDefaults()
	start := e.Clock()
	sum := Summary{RunID: uuid.NewString(), DryRun: opts.DryRun}

	reporter := e.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	sleepFn := e.Sleep
	if sleepFn == nil {
		sleepFn = sleep
	}
	exec := &Executor{
		Deleter:    e.Client,
		Limiter:    e.Limiter,
		Logger:     e.Logger,
		DryRun:     opts.DryRun,
		MaxRetries: opts.MaxRetries,
		BaseDelay:  opts.BaseDelay,
		MaxDelay:   opts.MaxDelay,
		Sleep:      sleepFn,
		rng:        e.Rand,
	}

	// runCtx stops the pipeline early on abort; the parent ctx carries
	// caller cancellation.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	batches := make(chan Batch)
	outcomes := make(chan Outcome)

	var workers errgroup.Group
	for range opts.Workers {
		workers.Go(func() error {
			for b := range batches {
				outcomes <- exec.Execute(runCtx, b)
			}
			return nil
		})
	}
	go func() {
		_ = workers.Wait()
		close(outcomes)
	}()

	prodCh := make(chan produceResult, 1)
	go func() {
		defer close(batches)
		prodCh <- e.produce(runCtx, q, opts, batches, sleepFn)
	}()

	var (
		aborted   bool
		abortKind Kind
		cancelled bool
		sawErrors bool
	)
	for oc := range outcomes {
		sum.fold(oc)
		if oc.Kind == OutcomeSkipped {
			// The batch never reached the network; no progress event.
			continue
		}
		e.report(reporter, oc, sum)
		switch {
		case oc.abortsRun():
			if !aborted {
				aborted, abortKind = true, oc.ErrKind
			}
			cancelRun()
		case oc.Kind == OutcomeFailed && oc.ErrKind == KindCancelled:
			cancelled = true
			cancelRun()
		case oc.Kind == OutcomeFailed || oc.Kind == OutcomePartial:
			sawErrors = true
		}
	}
	prod := <-prodCh
	sum.PagesFetched = prod.pages

	switch {
	case aborted:
		sum.Status, sum.Abort = StatusAborted, abortKind
	case ctx.Err() != nil || cancelled || prod.cancelled:
		sum.Status = StatusCancelled
	case prod.hasAbort:
		sum.Status, sum.Abort = StatusAborted, prod.abort
	case sawErrors:
		sum.Status = StatusCompletedWithErrors
	default:
		sum.Status = StatusCompleted
	}
	sum.Elapsed = e.Clock().Sub(start)

	e.Logger.Info("run finished",
		"run", sum.RunID,
		"status", sum.Status.String(),
		"pages", sum.PagesFetched,
		"batches", sum.BatchesAttempted,
		"deleted", sum.ItemsDeleted,
		"already_gone", sum.ItemsAlreadyGone,
		"failed", sum.ItemsFailed,
		"skipped", sum.ItemsSkipped,
		"retries", sum.Retries,
		"elapsed", sum.Elapsed)
	return sum
}

type produceResult struct {
	pages     int
	abort     Kind
	hasAbort  bool
	cancelled bool
}

// produce walks the listing and feeds completed batches to the workers.
// Transient listing failures are retried here with the same backoff policy
// as batches; the pager's cursor does not move on failure, so a retried
// page loses nothing.
func (e *Engine) produce(
	ctx context.Context,
	q gmail.Query,
	opts Options,
	batches chan<- Batch,
	sleepFn func(context.Context, time.Duration) error,
) produceResult {
	var res produceResult
	pager := NewPager(e.Client, q, opts.PageSize)
	batcher := NewBatcher(opts.BatchSize)
	bo := newBackoff(opts.BaseDelay, opts.MaxDelay, opts.MaxRetries, e.Rand)
	for {
		if ctx.Err() != nil {
			res.cancelled = true
			return res
		}
		page, err := pager.Next(ctx)
		if errors.Is(err, ErrEndOfListing) {
			break
		}
		if err != nil {
			kind := Classify(err)
			switch {
			case kind == KindCancelled:
				res.cancelled = true
				return res
			case kind.Retryable():
				delay, ok := bo.Next()
				if !ok {
					e.Logger.Error("listing retries exhausted", "error", err)
					res.abort, res.hasAbort = KindTransient, true
					return res
				}
				e.Logger.Warn("listing failed, backing off", "delay", delay, "error", err)
				if serr := sleepFn(ctx, delay); serr != nil {
					res.cancelled = true
					return res
				}
				continue
			default:
				res.abort, res.hasAbort = kind, true
				return res
			}
		}
		bo.Reset()
		res.pages++
		for _, b := range batcher.Feed(page) {
			if !send(ctx, batches, b) {
				res.cancelled = true
				return res
			}
		}
	}
	if b, ok := batcher.Flush(); ok {
		if !send(ctx, batches, b) {
			res.cancelled = true
		}
	}
	return res
}

func send(ctx context.Context, ch chan<- Batch, b Batch) bool {
	select {
	case ch <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) report(r ProgressReporter, oc Outcome, sum Summary) {
	defer func() {
		if p := recover(); p != nil {
			e.Logger.Warn("progress reporter panicked", "panic", p)
		}
	}()
	r.BatchCompleted(oc, sum)
}
