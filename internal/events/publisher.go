// Package events publishes run summaries to NATS for external consumers
// (dashboards, notification bots).
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/buildcheck/internal/config"
	"git.home.luguber.info/inful/buildcheck/internal/pipeline"
)

// RunSummary is the wire payload emitted per completed run.
type RunSummary struct {
	RunID    string        `json:"run_id"`
	Profile  string        `json:"profile"`
	Release  bool          `json:"release"`
	Outcome  string        `json:"outcome"`
	ExitCode int           `json:"exit_code"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Revision string        `json:"revision,omitempty"`
	Branch   string        `json:"branch,omitempty"`
	Steps    []StepSummary `json:"steps"`
}

// StepSummary is the per-step portion of a RunSummary.
type StepSummary struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
}

// SummaryFromReport converts a pipeline report into the wire payload.
func SummaryFromReport(report *pipeline.Report) RunSummary {
	summary := RunSummary{
		RunID:    report.RunID,
		Profile:  report.Profile,
		Release:  report.Release,
		Outcome:  report.Outcome(),
		ExitCode: report.ExitCode,
		Start:    report.Start,
		Duration: report.Duration,
		Revision: report.Revision,
		Branch:   report.Branch,
	}
	for _, st := range report.Steps {
		summary.Steps = append(summary.Steps, StepSummary{
			Name:     string(st.Name),
			Status:   string(st.Status),
			ExitCode: st.ExitCode,
			Duration: st.Duration,
			Attempts: st.Attempts,
		})
	}
	return summary
}

// Publisher emits run summaries on a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS using the events configuration.
func NewPublisher(cfg config.EventsConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("events are disabled")
	}

	conn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", cfg.NATSURL, "subject", cfg.Subject)
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// PublishRun emits a summary of the completed run.
func (p *Publisher) PublishRun(report *pipeline.Report) error {
	payload, err := json.Marshal(SummaryFromReport(report))
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish run summary: %w", err)
	}
	return p.conn.FlushTimeout(5 * time.Second)
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
