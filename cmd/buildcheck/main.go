package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildcheck/internal/config"
	"git.home.luguber.info/inful/buildcheck/internal/daemon"
	"git.home.luguber.info/inful/buildcheck/internal/events"
	"git.home.luguber.info/inful/buildcheck/internal/gitinfo"
	"git.home.luguber.info/inful/buildcheck/internal/history"
	"git.home.luguber.info/inful/buildcheck/internal/metrics"
	"git.home.luguber.info/inful/buildcheck/internal/pipeline"
	"git.home.luguber.info/inful/buildcheck/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"buildcheck.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		Release bool   `help:"Select the release profile"`
		Profile string `short:"p" help:"Explicit profile string passed to the build and test steps"`
	} `cmd:"" help:"Run the check pipeline: build, test, and (release only) bench"`

	Plan struct {
		Release bool   `help:"Select the release profile"`
		Profile string `short:"p" help:"Explicit profile string"`
	} `cmd:"" help:"Show the steps a run would execute without executing them"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Daemon struct {
	} `cmd:"" help:"Run checks continuously on a schedule and on source changes"`

	History struct {
		Limit int `short:"n" help:"Number of runs to show" default:"10"`
	} `cmd:"" help:"Show recent check runs"`

	Version struct {
	} `cmd:"" help:"Show version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "run":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		profile := resolveProfile(cfg, CLI.Run.Release, CLI.Run.Profile)
		report, err := runCheck(cfg, profile)
		if err != nil {
			slog.Error("Check run failed", "error", err)
			os.Exit(exitCodeFor(report))
		}
	case "plan":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		profile := resolveProfile(cfg, CLI.Plan.Release, CLI.Plan.Profile)
		runPlan(cfg, profile)
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Configuration file created", "path", CLI.Config)
	case "daemon":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "history":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runHistory(cfg, CLI.History.Limit); err != nil {
			slog.Error("History failed", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("buildcheck %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
}

// resolveProfile maps CLI flags to the profile string. An explicit
// --profile wins over --release; neither means the default profile.
func resolveProfile(cfg *config.Config, release bool, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if release {
		return cfg.Profiles.ReleaseFlag
	}
	return ""
}

// exitCodeFor propagates the failing step's exit code, defaulting to 1
// when the run never produced a report.
func exitCodeFor(report *pipeline.Report) int {
	if report == nil || report.ExitCode == 0 {
		return 1
	}
	return report.ExitCode
}

// runCheck executes one pipeline run and persists/publishes its outcome.
func runCheck(cfg *config.Config, profile string) (*pipeline.Report, error) {
	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pl := pipeline.New(cfg)
	report, runErr := pl.Run(runCtx, profile)
	stampRevision(cfg, report)
	persistRun(cfg, report)
	publishRun(cfg, report)
	return report, runErr
}

// stampRevision records the project's git revision on the report, best effort.
func stampRevision(cfg *config.Config, report *pipeline.Report) {
	if report == nil {
		return
	}
	info, err := gitinfo.Resolve(cfg.ProjectDir)
	if err != nil {
		slog.Debug("Could not resolve project revision", "error", err)
		return
	}
	report.Revision = info.Revision
	report.Branch = info.Branch
}

// persistRun records the run in the history store when enabled.
func persistRun(cfg *config.Config, report *pipeline.Report) {
	if report == nil || !cfg.HistoryEnabled() {
		return
	}
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		slog.Warn("Failed to open history store", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	storeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.RecordRun(storeCtx, report); err != nil {
		slog.Warn("Failed to record run in history", "error", err)
	}
}

// publishRun emits the run summary on NATS when events are enabled.
func publishRun(cfg *config.Config, report *pipeline.Report) {
	if report == nil || !cfg.Events.Enabled {
		return
	}
	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		slog.Warn("Failed to create event publisher", "error", err)
		return
	}
	defer publisher.Close()
	if err := publisher.PublishRun(report); err != nil {
		slog.Warn("Failed to publish run summary", "error", err)
	}
}

// runPlan prints the steps a run with the given profile would execute.
func runPlan(cfg *config.Config, profile string) {
	pl := pipeline.New(cfg)
	shown := profile
	if shown == "" {
		shown = "(default)"
	}
	fmt.Printf("Plan for profile %s:\n", shown)
	for _, step := range pl.Plan(profile) {
		switch {
		case step.Name == pipeline.StepDiagnostics:
			pairs := make([]string, 0, len(step.Env))
			for k, v := range step.Env {
				pairs = append(pairs, k+"="+v)
			}
			fmt.Printf("  %-12s export %s\n", step.Name, strings.Join(pairs, " "))
		case step.FailFast:
			fmt.Printf("  %-12s %s (fail-fast)\n", step.Name, strings.Join(step.Command, " "))
		default:
			fmt.Printf("  %-12s %s (failure suppressed)\n", step.Name, strings.Join(step.Command, " "))
		}
	}
}

// runDaemon runs check pipelines continuously until interrupted.
func runDaemon(cfg *config.Config) error {
	daemonCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var registry *prom.Registry
	pl := pipeline.New(cfg)
	if cfg.Metrics.Enabled {
		registry = prom.NewRegistry()
		pl = pl.WithRecorder(metrics.NewPrometheusRecorder(registry))
	}

	runOnce := func(ctx context.Context, reason string) {
		report, err := pl.Run(ctx, "")
		stampRevision(cfg, report)
		persistRun(cfg, report)
		publishRun(cfg, report)
		if err != nil {
			slog.Warn("Triggered check run failed", "reason", reason, "error", err)
		}
	}

	d, err := daemon.New(cfg, runOnce, registry)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(daemonCtx)
	}()

	slog.Info("Daemon started, waiting for shutdown signal...")

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
	case <-daemonCtx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}

// runHistory prints the most recent runs from the history store.
func runHistory(cfg *config.Config, limit int) error {
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	queryCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := store.RecentRuns(queryCtx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range runs {
		profile := r.Profile
		if profile == "" {
			profile = "(default)"
		}
		revision := r.Revision
		if len(revision) > 8 {
			revision = revision[:8]
		}
		fmt.Printf("%s  %-10s  %-10s  exit=%d  %-8s  %s\n",
			r.StartedAt.Format(time.RFC3339), profile, r.Outcome, r.ExitCode,
			r.Duration.Round(time.Millisecond), revision)
	}
	return nil
}
