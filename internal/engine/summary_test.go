package engine

import (
	"math/rand"
	"testing"
)

func TestSummaryFoldCommutative(t *testing.T) {
	outcomes := []Outcome{
		{Batch: 1, Kind: OutcomeSucceeded, Deleted: 20},
		{Batch: 2, Kind: OutcomePartial, Deleted: 18, AlreadyGone: 3, Failed: 2, Retries: 1},
		{Batch: 3, Kind: OutcomeFailed, ErrKind: KindTransient, Failed: 20, Retries: 5},
		{Batch: 4, Kind: OutcomeSkipped, ErrKind: KindCancelled, Skipped: 7},
		{Batch: 5, Kind: OutcomeSimulated, Deleted: 12},
	}

	var want Summary
	for _, oc := range outcomes {
		want.fold(oc)
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]Outcome(nil), outcomes...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		var got Summary
		for _, oc := range shuffled {
			got.fold(oc)
		}
		if got != want {
			t.Fatalf("trial %d: fold order changed the summary:\ngot  %+v\nwant %+v", trial, got, want)
		}
	}
}

func TestSummaryFoldCounters(t *testing.T) {
	var s Summary
	s.fold(Outcome{Kind: OutcomeSucceeded, Deleted: 20})
	s.fold(Outcome{Kind: OutcomePartial, Deleted: 15, AlreadyGone: 2, Failed: 5, Retries: 2})
	s.fold(Outcome{Kind: OutcomeSkipped, Skipped: 9})

	if s.BatchesAttempted != 2 {
		t.Fatalf("skipped batches must not count as attempted: %d", s.BatchesAttempted)
	}
	if s.ItemsDeleted != 35 || s.ItemsAlreadyGone != 2 || s.ItemsFailed != 5 {
		t.Fatalf("unexpected item counters: %+v", s)
	}
	if s.ItemsSkipped != 9 || s.Retries != 2 {
		t.Fatalf("unexpected skip/retry counters: %+v", s)
	}
}

func TestStatusOK(t *testing.T) {
	if !StatusCompleted.OK() || !StatusCompletedWithErrors.OK() {
		t.Fatal("completed statuses must map to a zero exit")
	}
	if StatusAborted.OK() || StatusCancelled.OK() {
		t.Fatal("aborted and cancelled must map to a non-zero exit")
	}
}
