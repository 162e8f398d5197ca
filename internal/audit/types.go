package audit

import "time"

// Operations recorded in the recompute log.
const (
	OpRecordChanged     = "record_changed"
	OpThresholdsChanged = "thresholds_changed"
	OpFullSweep         = "full_sweep"
)

// Decisions recorded in the recompute log.
const (
	DecisionScored        = "scored"
	DecisionRecategorized = "recategorized"
	DecisionSkipped       = "skipped"
	DecisionFailed        = "failed"
)

// #region entry
// Entry is a single row in the recompute_log table.
type Entry struct {
	Op        string
	TestID    string
	Decision  string
	Reason    string
	CreatedAt time.Time
}

// #endregion entry
