package engine

// ProgressReporter receives one event per completed batch, with a snapshot
// of the cumulative summary. Implementations must not block; the engine
// swallows reporter panics so reporting can never take down a run.
type ProgressReporter interface {
	BatchCompleted(outcome Outcome, summary Summary)
}

type nopReporter struct{}

func (nopReporter) BatchCompleted(Outcome, Summary) {}
