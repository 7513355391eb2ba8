// Package daemon runs check pipelines continuously: on a fixed schedule,
// and on filesystem changes under the watched paths.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildcheck/internal/config"
	"git.home.luguber.info/inful/buildcheck/internal/metrics"
)

// RunFunc executes one check run. Daemon-triggered run failures are
// logged and recorded, never fatal to the daemon itself.
type RunFunc func(ctx context.Context, reason string)

// Daemon coordinates the scheduler, source watcher, and run loop.
type Daemon struct {
	cfg       *config.Config
	runOnce   RunFunc
	registry  *prom.Registry
	debouncer *Debouncer
	scheduler *Scheduler
	watcher   *SourceWatcher
	httpSrv   *http.Server
}

// New creates a daemon. The registry may be nil when metrics are disabled.
func New(cfg *config.Config, runOnce RunFunc, registry *prom.Registry) (*Daemon, error) {
	if runOnce == nil {
		return nil, fmt.Errorf("run function is required")
	}
	return &Daemon{
		cfg:       cfg,
		runOnce:   runOnce,
		registry:  registry,
		debouncer: NewDebouncer(cfg.Daemon.DebounceDuration()),
	}, nil
}

// Start runs the daemon until the context is canceled.
func (d *Daemon) Start(ctx context.Context) error {
	scheduler, err := NewScheduler(d.debouncer)
	if err != nil {
		return err
	}
	d.scheduler = scheduler

	if _, err := scheduler.SchedulePeriodicRun(d.cfg.Daemon.IntervalDuration()); err != nil {
		return err
	}
	scheduler.Start(ctx)

	if len(d.cfg.Daemon.Watch) > 0 {
		watcher, err := NewSourceWatcher(d.cfg.ProjectDir, d.cfg.Daemon.Watch, d.debouncer)
		if err != nil {
			return err
		}
		d.watcher = watcher
		go watcher.Run(ctx)
		slog.Info("Watching source paths", "paths", d.cfg.Daemon.Watch)
	}

	if d.cfg.Metrics.Enabled && d.registry != nil {
		d.startMetricsServer()
	}

	go d.debouncer.Run(ctx)

	slog.Info("Daemon started",
		"interval", d.cfg.Daemon.Interval,
		"debounce", d.cfg.Daemon.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-d.debouncer.Out():
			slog.Info("Check run triggered", "reason", reason)
			d.runOnce(ctx, reason)
		}
	}
}

// Stop shuts down the scheduler, watcher, and metrics endpoint.
func (d *Daemon) Stop(ctx context.Context) error {
	var firstErr error

	if d.scheduler != nil {
		if err := d.scheduler.Stop(ctx); err != nil {
			firstErr = err
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.httpSrv != nil {
		if err := d.httpSrv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Daemon) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	d.httpSrv = &http.Server{
		Addr:              d.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Metrics endpoint listening", "addr", d.cfg.Metrics.Listen)
		if err := d.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics endpoint failed", "error", err)
		}
	}()
}
