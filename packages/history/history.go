// Package history stores check outcomes in a local SQLite database so runs
// can be compared over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/core/runner"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	file        TEXT NOT NULL,
	name        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_file_started ON runs (file, started_at);
CREATE TABLE IF NOT EXISTS checks (
	run_id      TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	target      TEXT NOT NULL,
	matcher     TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	message     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);`

// Run is one recorded suite run
type Run struct {
	ID        string
	File      string
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
}

// Failing reports whether any check in the run failed
func (r Run) Failing() bool {
	return r.Failed > 0
}

// Entry is one recorded check outcome
type Entry struct {
	Name     string
	Target   string
	Matcher  string
	Passed   bool
	Skipped  bool
	Message  string
	Duration time.Duration
}

// Store is a history database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a run and its checks and returns the new run ID
func (s *Store) Record(ctx context.Context, result *runner.RunResult) (string, error) {
	id := uuid.NewString()
	started := s.now().Add(-result.Duration).UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, file, name, started_at, duration_ms, passed, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, result.File, result.Name, started.Format(timeLayout),
		result.Duration.Milliseconds(), result.Passed, result.Failed, result.Skipped,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO checks (run_id, position, name, target, matcher, passed, skipped, message, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, c := range result.Results {
		message := c.Message
		if c.Error != nil {
			message = c.Error.Error()
		} else if c.Skipped {
			message = c.SkipReason
		}
		_, err := stmt.ExecContext(ctx, id, i, c.Name, c.Target, c.Matcher,
			c.Passed, c.Skipped, message, c.Duration.Milliseconds())
		if err != nil {
			return "", fmt.Errorf("insert check %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// timeLayout has a fixed width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, file, name, started_at, duration_ms, passed, failed, skipped`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r          Run
		startedAt  string
		durationMs int64
	)
	if err := row.Scan(&r.ID, &r.File, &r.Name, &startedAt, &durationMs, &r.Passed, &r.Failed, &r.Skipped); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: bad timestamp: %w", r.ID, err)
	}
	r.StartedAt = t
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, nil
}

// Recent returns up to limit runs, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// LastRun returns the newest run recorded for file, or nil if there is none
func (s *Store) LastRun(ctx context.Context, file string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE file = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, file)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LastFailed reports whether the newest run recorded for file had failures.
// A file with no history has not failed.
func (s *Store) LastFailed(ctx context.Context, file string) (bool, error) {
	r, err := s.LastRun(ctx, file)
	if err != nil || r == nil {
		return false, err
	}
	return r.Failing(), nil
}

// Checks returns the recorded checks of a run in their original order
func (s *Store) Checks(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, target, matcher, passed, skipped, message, duration_ms
		 FROM checks WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationMs int64
		)
		if err := rows.Scan(&e.Name, &e.Target, &e.Matcher, &e.Passed, &e.Skipped, &e.Message, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}
