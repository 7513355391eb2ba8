package toolexec

import (
	"errors"
	"fmt"
	"os/exec"
)

// ExitCodeError wraps an error with an explicit process exit code.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// WithExitCode attaches an exit code to an error.
// The exit code can be retrieved later using GetExitCode.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &ExitCodeError{Code: code, Err: err}
}

// GetExitCode extracts the exit code from an error chain.
// Returns 0 if err is nil, the wrapped code if present, the subprocess
// exit status for exec.ExitError, and 1 for anything else (spawn
// failures, missing binaries).
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var ec *ExitCodeError
	if errors.As(err, &ec) {
		return ec.Code
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return 1
}
