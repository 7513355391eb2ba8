// Package toolexec runs the external build/test/bench tools with inherited
// stdio so their output streams straight to the invoker's terminal.
package toolexec

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// CommandSpec describes a single external tool invocation.
type CommandSpec struct {
	Name string   // binary name or path
	Args []string // arguments, already fully resolved
	Dir  string   // working directory; empty means inherit
	Env  []string // extra KEY=VALUE entries appended to the process env
}

// String renders the spec as a shell-ish one-liner for logging.
func (s CommandSpec) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return s.Name + " " + strings.Join(s.Args, " ")
}

// Runner executes external commands. The pipeline depends on this interface
// so tests can substitute a fake without spawning processes.
type Runner interface {
	Run(ctx context.Context, spec CommandSpec) error
}

// ProcessRunner is the production Runner backed by os/exec.
type ProcessRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewProcessRunner returns a runner wired to the current process stdio.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes the command and blocks until it exits. The returned error
// keeps any exec.ExitError in its chain so callers can recover the exit code.
func (r *ProcessRunner) Run(ctx context.Context, spec CommandSpec) error {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", spec.String(), err)
	}
	return nil
}
