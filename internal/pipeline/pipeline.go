// Package pipeline sequences the build, test, and bench steps of a check
// run: build failures abort the run, test failures are suppressed, and the
// bench step runs only under the release profile.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/buildcheck/internal/config"
	cherr "git.home.luguber.info/inful/buildcheck/internal/errors"
	"git.home.luguber.info/inful/buildcheck/internal/logfields"
	"git.home.luguber.info/inful/buildcheck/internal/metrics"
	"git.home.luguber.info/inful/buildcheck/internal/retry"
	"git.home.luguber.info/inful/buildcheck/internal/toolexec"
)

// Pipeline executes a configured check run.
type Pipeline struct {
	cfg      *config.Config
	runner   toolexec.Runner
	recorder metrics.Recorder
	setenv   func(key, value string) error
}

// New constructs a pipeline with production defaults.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		runner:   toolexec.NewProcessRunner(),
		recorder: metrics.NoopRecorder{},
		setenv:   os.Setenv,
	}
}

// WithRunner injects a custom command runner (for testing).
func (p *Pipeline) WithRunner(r toolexec.Runner) *Pipeline {
	p.runner = r
	return p
}

// WithRecorder injects a metrics recorder.
func (p *Pipeline) WithRecorder(r metrics.Recorder) *Pipeline {
	p.recorder = r
	return p
}

// WithSetenv overrides the environment mutator (for testing).
func (p *Pipeline) WithSetenv(f func(key, value string) error) *Pipeline {
	p.setenv = f
	return p
}

// IsRelease reports whether the profile selects the release path.
func (p *Pipeline) IsRelease(profile string) bool {
	return profile == p.cfg.Profiles.ReleaseFlag
}

// PlannedStep describes one step of a run without executing it.
type PlannedStep struct {
	Name     StepName
	Command  []string          // resolved argv; empty for the diagnostics step
	Env      map[string]string // variables exported by the diagnostics step
	FailFast bool
}

// Plan resolves the steps a run with the given profile would execute.
func (p *Pipeline) Plan(profile string) []PlannedStep {
	release := p.IsRelease(profile)
	plans := []PlannedStep{
		{Name: StepDiagnostics, Env: p.cfg.Diagnostics.Env, FailFast: true},
		{
			Name:     StepBuild,
			Command:  resolveArgv(p.cfg.Steps.Build.Command, profile, true),
			FailFast: !p.cfg.Steps.Build.StepAllowsFailure(false),
		},
		{
			Name:     StepTest,
			Command:  resolveArgv(p.cfg.Steps.Test.Command, profile, true),
			FailFast: !p.cfg.Steps.Test.StepAllowsFailure(true),
		},
	}
	if release {
		plans = append(plans, PlannedStep{
			Name:     StepBench,
			Command:  resolveArgv(p.cfg.Steps.Bench.Command, profile, false),
			FailFast: !p.cfg.Steps.Bench.StepAllowsFailure(false),
		})
	}
	return plans
}

// resolveArgv builds the final argv for a step. The profile is appended
// verbatim when the step receives it and the profile is non-empty; the
// bench step never receives it.
func resolveArgv(command []string, profile string, passProfile bool) []string {
	argv := append([]string{}, command...)
	if passProfile && profile != "" {
		argv = append(argv, profile)
	}
	return argv
}

type pipelineStep struct {
	name StepName
	run  func(ctx context.Context) (StepRecord, *StepError)
}

// Run executes the pipeline. The returned report is always non-nil; the
// error is a *StepError for fatal or canceled steps and nil otherwise,
// including when the test step failed but was suppressed.
func (p *Pipeline) Run(ctx context.Context, profile string) (*Report, error) {
	release := p.IsRelease(profile)

	report := &Report{
		RunID:   uuid.NewString(),
		Profile: profile,
		Release: release,
		Start:   time.Now(),
	}

	if release && len(p.cfg.Steps.Bench.Command) == 0 {
		report.ExitCode = 1
		return report, cherr.New(cherr.CategoryValidation, cherr.SeverityFatal,
			"steps.bench.command is required for release runs")
	}

	defer func() {
		report.Duration = time.Since(report.Start)
		p.recorder.ObserveRunDuration(report.Duration)
	}()

	slog.Info("Starting check run",
		logfields.RunID(report.RunID),
		logfields.Profile(profile),
		slog.Bool("release", release))

	for _, st := range p.stepList(profile, release) {
		select {
		case <-ctx.Done():
			se := newCanceledStepError(st.name, ctx.Err())
			report.Steps = append(report.Steps, StepRecord{
				Name: st.name, Status: StatusCanceled, ExitCode: 1, Error: se.Error(),
			})
			report.ExitCode = 1
			p.recorder.IncStepResult(string(st.name), metrics.ResultCanceled)
			p.recorder.IncRunOutcome(metrics.ResultCanceled)
			return report, se
		default:
		}

		rec, se := st.run(ctx)
		report.Steps = append(report.Steps, rec)
		p.recorder.ObserveStepDuration(string(st.name), rec.Duration)

		if se == nil {
			p.recorder.IncStepResult(string(st.name), metrics.ResultSuccess)
			continue
		}

		switch se.Kind {
		case StepErrorSuppressed:
			p.recorder.IncStepResult(string(st.name), metrics.ResultSuppressed)
			slog.Warn("Step failed; failure suppressed",
				logfields.RunID(report.RunID),
				logfields.Step(string(st.name)),
				logfields.ExitCode(rec.ExitCode),
				logfields.Error(se.Err))
		case StepErrorCanceled:
			p.recorder.IncStepResult(string(st.name), metrics.ResultCanceled)
			p.recorder.IncRunOutcome(metrics.ResultCanceled)
			report.ExitCode = rec.ExitCode
			return report, se
		default:
			p.recorder.IncStepResult(string(st.name), metrics.ResultFatal)
			p.recorder.IncRunOutcome(metrics.ResultFatal)
			report.ExitCode = rec.ExitCode
			slog.Error("Step failed",
				logfields.RunID(report.RunID),
				logfields.Step(string(st.name)),
				logfields.ExitCode(rec.ExitCode),
				logfields.Error(se.Err))
			return report, se
		}
	}

	report.ExitCode = 0
	p.recorder.IncRunOutcome(metrics.ResultSuccess)
	slog.Info("Check run completed",
		logfields.RunID(report.RunID),
		logfields.DurationMS(float64(time.Since(report.Start).Milliseconds())))
	return report, nil
}

// stepList assembles the steps for one run in execution order.
func (p *Pipeline) stepList(profile string, release bool) []pipelineStep {
	steps := []pipelineStep{
		{name: StepDiagnostics, run: p.runDiagnostics},
		{name: StepBuild, run: func(ctx context.Context) (StepRecord, *StepError) {
			return p.runCommandStep(ctx, StepBuild, p.cfg.Steps.Build, profile, true, false)
		}},
		{name: StepTest, run: func(ctx context.Context) (StepRecord, *StepError) {
			return p.runCommandStep(ctx, StepTest, p.cfg.Steps.Test, profile, true, true)
		}},
	}
	if release {
		steps = append(steps, pipelineStep{name: StepBench, run: func(ctx context.Context) (StepRecord, *StepError) {
			return p.runCommandStep(ctx, StepBench, p.cfg.Steps.Bench, profile, false, false)
		}})
	}
	return steps
}

// runDiagnostics exports the configured diagnostics variables into the
// orchestrator's own environment so every subsequently spawned process
// inherits them.
func (p *Pipeline) runDiagnostics(_ context.Context) (StepRecord, *StepError) {
	rec := StepRecord{Name: StepDiagnostics, Attempts: 1}
	t0 := time.Now()

	keys := make([]string, 0, len(p.cfg.Diagnostics.Env))
	for k := range p.cfg.Diagnostics.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := p.cfg.Diagnostics.Env[k]
		if err := p.setenv(k, v); err != nil {
			rec.Duration = time.Since(t0)
			rec.Status = StatusFailed
			rec.ExitCode = 1
			rec.Error = err.Error()
			return rec, newFatalStepError(StepDiagnostics,
				cherr.Wrap(err, cherr.CategoryExec, cherr.SeverityFatal, "set diagnostics environment"))
		}
		slog.Debug("Diagnostics variable exported", slog.String("var", k), slog.String("value", v))
	}

	rec.Duration = time.Since(t0)
	rec.Status = StatusSuccess
	return rec, nil
}

// runCommandStep executes one external tool step, retrying when the step
// is marked retryable.
func (p *Pipeline) runCommandStep(ctx context.Context, name StepName, sc config.StepConfig, profile string, passProfile, defaultAllow bool) (StepRecord, *StepError) {
	argv := resolveArgv(sc.Command, profile, passProfile)
	spec := toolexec.CommandSpec{Name: argv[0], Args: argv[1:], Dir: p.cfg.ProjectDir}

	policy := retry.FromConfig(p.cfg.Retry)
	maxAttempts := 1
	if sc.Retryable {
		maxAttempts = 1 + policy.MaxRetries
	}

	rec := StepRecord{Name: name}
	t0 := time.Now()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rec.Attempts = attempt
		slog.Info("Running step",
			logfields.Step(string(name)),
			logfields.Command(spec.String()),
			logfields.Attempt(attempt))
		err = p.runner.Run(ctx, spec)
		if err == nil || ctx.Err() != nil || attempt == maxAttempts {
			break
		}
		p.recorder.IncStepRetry(string(name))
		slog.Warn("Step attempt failed; retrying",
			logfields.Step(string(name)),
			logfields.Attempt(attempt),
			logfields.Error(err))
		select {
		case <-time.After(policy.Delay(attempt)):
		case <-ctx.Done():
		}
	}
	rec.Duration = time.Since(t0)

	if err == nil {
		rec.Status = StatusSuccess
		return rec, nil
	}

	rec.ExitCode = toolexec.GetExitCode(err)
	rec.Error = err.Error()

	if ctx.Err() != nil {
		rec.Status = StatusCanceled
		return rec, newCanceledStepError(name, err)
	}
	if sc.StepAllowsFailure(defaultAllow) {
		rec.Status = StatusSuppressed
		return rec, newSuppressedStepError(name, err)
	}
	rec.Status = StatusFailed
	return rec, newFatalStepError(name, err)
}
