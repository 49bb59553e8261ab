package runtime

import (
	"log/slog"

	"github.com/joshsymonds/emailmanager/internal/engine"
)

// LogReporter logs one line per completed batch. It never blocks and never
// fails; it is the default ProgressReporter for the CLIs.
type LogReporter struct {
	Log *slog.Logger
}

func (r LogReporter) BatchCompleted(oc engine.Outcome, sum engine.Summary) {
	r.Log.Info("batch complete",
		"run", sum.RunID,
		"batch", oc.Batch,
		"outcome", oc.Kind.String(),
		"batch_deleted", oc.Deleted,
		"batch_failed", oc.Failed,
		"retries", oc.Retries,
		"total_deleted", sum.ItemsDeleted,
		"total_failed", sum.ItemsFailed)
}
