// Package history persists check run outcomes to a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/buildcheck/internal/pipeline"
)

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	ID        string
	Profile   string
	Release   bool
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  int
	Outcome   string
	Revision  string
	Branch    string
}

// StepRecord is one persisted step outcome belonging to a run.
type StepRecord struct {
	RunID    string
	Name     string
	Status   string
	ExitCode int
	Duration time.Duration
	Attempts int
	Error    string
}

// Store defines the interface for persisting and retrieving runs.
type Store interface {
	// RecordRun persists a completed run report with its step outcomes.
	RecordRun(ctx context.Context, report *pipeline.Report) error

	// RecentRuns retrieves the n most recent runs, newest first.
	RecentRuns(ctx context.Context, n int) ([]RunRecord, error)

	// StepsForRun retrieves the step outcomes for a specific run.
	StepsForRun(ctx context.Context, runID string) ([]StepRecord, error)

	// Close closes the store and releases resources.
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based run store.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create history directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		release_run INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		revision TEXT,
		branch TEXT
	);
	CREATE TABLE IF NOT EXISTS run_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		attempts INTEGER NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_run_steps_run ON run_steps(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun persists a completed run report and its step outcomes atomically.
func (s *SQLiteStore) RecordRun(ctx context.Context, report *pipeline.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	release := 0
	if report.Release {
		release = 1
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, profile, release_run, started_at, duration_ns, exit_code, outcome, revision, branch)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Profile, release, report.Start.Unix(),
		int64(report.Duration), report.ExitCode, report.Outcome(), report.Revision, report.Branch,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, step := range report.Steps {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, name, status, exit_code, duration_ns, attempts, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, string(step.Name), string(step.Status), step.ExitCode,
			int64(step.Duration), step.Attempts, step.Error,
		)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", step.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns retrieves the n most recent runs, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, n int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		n = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile, release_run, started_at, duration_ns, exit_code, outcome, revision, branch
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var release int
		var startedUnix, durationNS int64
		var revision, branch sql.NullString
		if err := rows.Scan(&r.ID, &r.Profile, &release, &startedUnix, &durationNS, &r.ExitCode, &r.Outcome, &revision, &branch); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Release = release != 0
		r.StartedAt = time.Unix(startedUnix, 0)
		r.Duration = time.Duration(durationNS)
		r.Revision = revision.String
		r.Branch = branch.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// StepsForRun retrieves all step outcomes for a specific run in execution order.
func (s *SQLiteStore) StepsForRun(ctx context.Context, runID string) ([]StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, name, status, exit_code, duration_ns, attempts, error
		 FROM run_steps WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var st StepRecord
		var durationNS int64
		var stepErr sql.NullString
		if err := rows.Scan(&st.RunID, &st.Name, &st.Status, &st.ExitCode, &durationNS, &st.Attempts, &stepErr); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		st.Duration = time.Duration(durationNS)
		st.Error = stepErr.String
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return steps, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
