package pipeline

import "time"

// StepRecord captures the outcome of a single step for the run report.
type StepRecord struct {
	Name     StepName      `json:"name"`
	Status   StepStatus    `json:"status"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
}

// Report carries the observable result of one pipeline run.
type Report struct {
	RunID    string        `json:"run_id"`
	Profile  string        `json:"profile"`
	Release  bool          `json:"release"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Steps    []StepRecord  `json:"steps"`
	ExitCode int           `json:"exit_code"`
	Revision string        `json:"revision,omitempty"`
	Branch   string        `json:"branch,omitempty"`
}

// StepByName returns the record for a step, or nil if it never ran.
func (r *Report) StepByName(name StepName) *StepRecord {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// Outcome summarizes the run for metrics and event publication.
func (r *Report) Outcome() string {
	if r.ExitCode != 0 {
		return "failed"
	}
	for _, s := range r.Steps {
		if s.Status == StatusSuppressed {
			return "suppressed"
		}
	}
	return "success"
}
