package dto

import "time"

// StepResult is the outcome of one reconciliation step
type StepResult struct {
	Name    string
	Created int
	Updated int
	Skipped int
	Failed  int
	Err     error
}

// ReconcileReport is the outcome of a full reconciliation pass
type ReconcileReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
}

// Failed reports whether any step failed
func (r ReconcileReport) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil || s.Failed > 0 {
			return true
		}
	}
	return false
}

// RefreshResult reports a price refresh run
type RefreshResult struct {
	Requested int
	Updated   int
	Missing   int
	Chunks    int
}
