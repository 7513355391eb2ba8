package events

import (
	"encoding/json"
	"testing"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/config"
	"git.home.luguber.info/inful/buildcheck/internal/pipeline"
)

func TestSummaryFromReport(t *testing.T) {
	report := &pipeline.Report{
		RunID:    "run-42",
		Profile:  "--release",
		Release:  true,
		Start:    time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
		Duration: 3 * time.Second,
		ExitCode: 0,
		Revision: "deadbeef",
		Branch:   "main",
		Steps: []pipeline.StepRecord{
			{Name: pipeline.StepBuild, Status: pipeline.StatusSuccess, Duration: 2 * time.Second, Attempts: 1},
			{Name: pipeline.StepTest, Status: pipeline.StatusSuppressed, ExitCode: 3, Duration: time.Second, Attempts: 1},
		},
	}

	s := SummaryFromReport(report)
	if s.RunID != "run-42" || !s.Release || s.Profile != "--release" {
		t.Fatalf("unexpected summary header: %+v", s)
	}
	if s.Outcome != "suppressed" {
		t.Fatalf("expected suppressed outcome got %q", s.Outcome)
	}
	if len(s.Steps) != 2 {
		t.Fatalf("expected 2 steps got %d", len(s.Steps))
	}
	if s.Steps[1].Name != "test" || s.Steps[1].ExitCode != 3 || s.Steps[1].Status != "suppressed" {
		t.Fatalf("test step not mapped: %+v", s.Steps[1])
	}
	if s.Revision != "deadbeef" || s.Branch != "main" {
		t.Fatalf("git info not mapped: %+v", s)
	}
}

func TestSummaryJSONShape(t *testing.T) {
	s := SummaryFromReport(&pipeline.Report{RunID: "r", Profile: "", Start: time.Now()})
	payload, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal summary: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	for _, key := range []string{"run_id", "profile", "release", "outcome", "exit_code", "start", "duration"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("payload missing %q: %s", key, payload)
		}
	}
	// Empty revision/branch should be omitted from the wire payload.
	if _, ok := decoded["revision"]; ok {
		t.Fatalf("empty revision should be omitted: %s", payload)
	}
}

func TestNewPublisherRequiresEnabled(t *testing.T) {
	_, err := NewPublisher(config.EventsConfig{Enabled: false})
	if err == nil {
		t.Fatal("expected error for disabled events")
	}
}
