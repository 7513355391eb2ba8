package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultSuccess    ResultLabel = "success"
	ResultSuppressed ResultLabel = "suppressed"
	ResultFatal      ResultLabel = "fatal"
	ResultCanceled   ResultLabel = "canceled"
)

// Recorder defines observability hooks for run and step metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
// Components receive a Recorder through injection and default to
// NoopRecorder so metrics stay optional.
type Recorder interface {
	ObserveStepDuration(step string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStepResult(step string, result ResultLabel)
	IncRunOutcome(outcome ResultLabel)
	IncStepRetry(step string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)          {}
func (NoopRecorder) IncStepResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(ResultLabel)                 {}
func (NoopRecorder) IncStepRetry(string)                       {}
