package history

import (
	"context"
	"testing"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/pipeline"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleReport(id string, start time.Time) *pipeline.Report {
	return &pipeline.Report{
		RunID:    id,
		Profile:  "--release",
		Release:  true,
		Start:    start,
		Duration: 1500 * time.Millisecond,
		ExitCode: 0,
		Revision: "abc123def",
		Branch:   "main",
		Steps: []pipeline.StepRecord{
			{Name: pipeline.StepDiagnostics, Status: pipeline.StatusSuccess, Duration: time.Millisecond, Attempts: 1},
			{Name: pipeline.StepBuild, Status: pipeline.StatusSuccess, Duration: time.Second, Attempts: 1},
			{Name: pipeline.StepTest, Status: pipeline.StatusSuppressed, ExitCode: 4, Duration: 400 * time.Millisecond, Attempts: 1, Error: "exit status 4"},
			{Name: pipeline.StepBench, Status: pipeline.StatusSuccess, Duration: 99 * time.Millisecond, Attempts: 1},
		},
	}
}

func TestRecordAndFetchRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if err := store.RecordRun(ctx, sampleReport("run-1", start)); err != nil {
		t.Fatalf("record run: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run got %d", len(runs))
	}
	r := runs[0]
	if r.ID != "run-1" || r.Profile != "--release" || !r.Release {
		t.Fatalf("unexpected run record: %+v", r)
	}
	if r.Outcome != "suppressed" {
		t.Fatalf("expected suppressed outcome got %q", r.Outcome)
	}
	if !r.StartedAt.Equal(start) {
		t.Fatalf("expected start %v got %v", start, r.StartedAt)
	}
	if r.Revision != "abc123def" || r.Branch != "main" {
		t.Fatalf("git info not persisted: %+v", r)
	}

	steps, err := store.StepsForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("steps for run: %v", err)
	}
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps got %d", len(steps))
	}
	// Insertion order preserved.
	for i, want := range []string{"diagnostics", "build", "test", "bench"} {
		if steps[i].Name != want {
			t.Fatalf("step %d expected %s got %s", i, want, steps[i].Name)
		}
	}
	if steps[2].Status != "suppressed" || steps[2].ExitCode != 4 || steps[2].Error != "exit status 4" {
		t.Fatalf("test step not round-tripped: %+v", steps[2])
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rep := sampleReport("run-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		if err := store.RecordRun(ctx, rep); err != nil {
			t.Fatalf("record run %d: %v", i, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs got %d", len(runs))
	}
	if runs[0].ID != "run-e" || runs[1].ID != "run-d" || runs[2].ID != "run-c" {
		t.Fatalf("expected newest first, got %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestRecentRunsDefaultLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	for i := 0; i < 12; i++ {
		rep := sampleReport("run-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))
		if err := store.RecordRun(ctx, rep); err != nil {
			t.Fatalf("record run %d: %v", i, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 0)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 10 {
		t.Fatalf("expected default limit 10 got %d", len(runs))
	}
}

func TestStepsForUnknownRun(t *testing.T) {
	store := newTestStore(t)
	steps, err := store.StepsForRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("steps for unknown run: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected no steps got %d", len(steps))
	}
}

func TestFileBackedStoreCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/nested/history.db"
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	defer store.Close()

	if err := store.RecordRun(context.Background(), sampleReport("run-1", time.Now())); err != nil {
		t.Fatalf("record run: %v", err)
	}
	runs, err := store.RecentRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, err=%v n=%d", err, len(runs))
	}
}
