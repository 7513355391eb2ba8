package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler wraps the gocron scheduler for periodic check runs.
type Scheduler struct {
	scheduler gocron.Scheduler
	debouncer *Debouncer
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(debouncer *Debouncer) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, debouncer: debouncer}, nil
}

// SchedulePeriodicRun registers an interval job that triggers a check run.
// Returns the job ID for later management.
func (s *Scheduler) SchedulePeriodicRun(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			slog.Info("Scheduled check run triggered", "interval", interval.String())
			s.debouncer.Trigger("schedule")
		}),
		gocron.WithName("periodic-check"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic check job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(_ context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
