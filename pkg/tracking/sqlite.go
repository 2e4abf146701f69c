package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// InitDB opens the tracking database and creates its tables.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		name        TEXT DEFAULT '',
		started_at  DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS params (
		run_id TEXT NOT NULL,
		name   TEXT NOT NULL,
		value  TEXT NOT NULL,
		PRIMARY KEY (run_id, name)
	);

	CREATE TABLE IF NOT EXISTS metrics (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		name        TEXT NOT NULL,
		value       REAL NOT NULL,
		recorded_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_run ON metrics(run_id, name);

	CREATE TABLE IF NOT EXISTS artifacts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		path        TEXT NOT NULL,
		recorded_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SQLiteSink stores one run per sink.
type SQLiteSink struct {
	ctx   context.Context
	db    *sql.DB
	runID string
}

// OpenSQLite creates the database if needed and starts a run.
func OpenSQLite(ctx context.Context, path, runName string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.IO(path, err)
		}
	}
	db, err := InitDB(path)
	if err != nil {
		return nil, errs.IO(path, err)
	}
	s := &SQLiteSink{ctx: ctx, db: db, runID: uuid.NewString()}
	_, err = db.ExecContext(ctx, `INSERT INTO runs (id, name, started_at) VALUES (?, ?, ?)`,
		s.runID, runName, time.Now().UTC())
	if err != nil {
		_ = db.Close()
		return nil, errs.IO(path, err)
	}
	return s, nil
}

// RunID identifies the run this sink writes to.
func (s *SQLiteSink) RunID() string { return s.runID }

// RecordParam stores value as text; recording a name twice keeps the last value.
func (s *SQLiteSink) RecordParam(name string, value any) error {
	_, err := s.db.ExecContext(s.ctx,
		`INSERT INTO params (run_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, name) DO UPDATE SET value = excluded.value`,
		s.runID, name, fmt.Sprint(value))
	return err
}

func (s *SQLiteSink) RecordMetric(name string, value float64) error {
	_, err := s.db.ExecContext(s.ctx,
		`INSERT INTO metrics (run_id, name, value, recorded_at) VALUES (?, ?, ?, ?)`,
		s.runID, name, value, time.Now().UTC())
	return err
}

func (s *SQLiteSink) RecordArtifact(path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	_, err := s.db.ExecContext(s.ctx,
		`INSERT INTO artifacts (run_id, path, recorded_at) VALUES (?, ?, ?)`,
		s.runID, path, time.Now().UTC())
	return err
}

// Close marks the run finished and closes the database.
func (s *SQLiteSink) Close() error {
	_, err := s.db.ExecContext(s.ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().UTC(), s.runID)
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}
