package engine

import (
	"time"

	"github.com/joshsymonds/emailmanager/internal/gmail"
)

// OutcomeKind names the terminal state of one batch.
type OutcomeKind int

const (
	// OutcomeSucceeded means every id in the batch was trashed (or was
	// already gone).
	OutcomeSucceeded OutcomeKind = iota
	// OutcomeSimulated is a dry-run batch: counted, never sent.
	OutcomeSimulated
	// OutcomePartial means the call went through but the server rejected
	// some ids individually.
	OutcomePartial
	// OutcomeFailed means the batch as a whole failed, either fatally or
	// after exhausting retries.
	OutcomeFailed
	// OutcomeSkipped means the batch's network call never started, because
	// the run was cancelled or aborted first.
	OutcomeSkipped
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeSimulated:
		return "simulated"
	case OutcomePartial:
		return "partially-failed"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the result of executing one batch. Immutable once produced.
type Outcome struct {
	Batch       int
	Kind        OutcomeKind
	ErrKind     Kind // set when Kind is OutcomeFailed or OutcomeSkipped
	Deleted     int  // includes AlreadyGone
	AlreadyGone int
	Failed      int
	FailedIDs   map[gmail.MessageID]Kind
	Skipped     int
	Retries     int
	Err         error
}

// abortsRun reports whether this outcome must stop the run.
func (o Outcome) abortsRun() bool {
	return o.Kind == OutcomeFailed && o.ErrKind.Fatal()
}

// Status is the terminal state of a whole run.
type Status int

const (
	// StatusCompleted: listing exhausted, no batch failed.
	StatusCompleted Status = iota
	// StatusCompletedWithErrors: listing exhausted, but some batches
	// failed or were partially rejected.
	StatusCompletedWithErrors
	// StatusAborted: a non-retryable error stopped the run early.
	StatusAborted
	// StatusCancelled: the caller's context stopped the run early.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCompletedWithErrors:
		return "completed-with-errors"
	case StatusAborted:
		return "aborted"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// OK reports whether the run reached end of listing; the CLI maps it onto
// the exit code.
func (s Status) OK() bool {
	return s == StatusCompleted || s == StatusCompletedWithErrors
}

// Summary aggregates a run's counters. Folding is plain addition, so
// outcomes may arrive in any order without changing the final totals.
// ItemsDeleted includes ItemsAlreadyGone: the mailbox ended in the
// requested state for those ids, they just took no work.
type Summary struct {
	RunID            string
	DryRun           bool
	PagesFetched     int
	BatchesAttempted int
	ItemsDeleted     int
	ItemsAlreadyGone int
	ItemsFailed      int
	ItemsSkipped     int
	Retries          int
	Elapsed          time.Duration
	Status           Status
	Abort            Kind // set when Status is StatusAborted
}

func (s *Summary) fold(o Outcome) {
	if o.Kind == OutcomeSkipped {
		s.ItemsSkipped += o.Skipped
		return
	}
	s.BatchesAttempted++
	s.ItemsDeleted += o.Deleted
	s.ItemsAlreadyGone += o.AlreadyGone
	s.ItemsFailed += o.Failed
	s.Retries += o.Retries
}
