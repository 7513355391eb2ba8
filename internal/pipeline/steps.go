package pipeline

import "fmt"

// StepName identifies a pipeline step.
type StepName string

const (
	StepDiagnostics StepName = "diagnostics"
	StepBuild       StepName = "build"
	StepTest        StepName = "test"
	StepBench       StepName = "bench"
)

// StepErrorKind enumerates structured step error categories.
type StepErrorKind string

const (
	StepErrorFatal      StepErrorKind = "fatal"      // Run must abort.
	StepErrorSuppressed StepErrorKind = "suppressed" // Non-fatal; record and continue.
	StepErrorCanceled   StepErrorKind = "canceled"   // Context cancellation.
)

// StepError is a structured error carrying the step classification and
// underlying cause.
type StepError struct {
	Kind StepErrorKind
	Step StepName
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s step %s: %v", e.Kind, e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

func newFatalStepError(step StepName, err error) *StepError {
	return &StepError{Kind: StepErrorFatal, Step: step, Err: err}
}
func newSuppressedStepError(step StepName, err error) *StepError {
	return &StepError{Kind: StepErrorSuppressed, Step: step, Err: err}
}
func newCanceledStepError(step StepName, err error) *StepError {
	return &StepError{Kind: StepErrorCanceled, Step: step, Err: err}
}

// StepStatus is the recorded outcome of a step in the run report.
type StepStatus string

const (
	StatusSuccess    StepStatus = "success"
	StatusSuppressed StepStatus = "suppressed" // failed, failure swallowed
	StatusFailed     StepStatus = "failed"
	StatusCanceled   StepStatus = "canceled"
	StatusSkipped    StepStatus = "skipped"
)
