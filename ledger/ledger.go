// Package ledger keeps a durable SQLite record of optimizer runs and every
// new best trajectory they found.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"gridpolicy/policy"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	iterations  INTEGER NOT NULL,
	mode        TEXT NOT NULL DEFAULT 'balanced'
);

CREATE TABLE IF NOT EXISTS improvements (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT NOT NULL REFERENCES runs(run_id),
	iteration         INTEGER NOT NULL,
	score             REAL NOT NULL,
	net_emissions     REAL NOT NULL,
	total_cost        REAL NOT NULL,
	public_opinion    REAL NOT NULL,
	power_reliability REAL NOT NULL,
	recorded_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_improvements_run ON improvements(run_id, iteration);
`

// Run is one row of the runs table.
type Run struct {
	ID           string
	Started      time.Time
	Iterations   int
	Mode         string
	Improvements int
	BestScore    float64
}

// Ledger wraps the SQLite handle. It is safe for concurrent use.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// one writer; hooks call in from many workers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Ledger{db: db, path: path}, nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Close() error { return l.db.Close() }

// StartRun registers a run. Starting the same run id twice keeps the first row.
func (l *Ledger) StartRun(ctx context.Context, runID string, started time.Time, iterations int, mode string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO runs (run_id, started_at, iterations, mode) VALUES (?, ?, ?, ?)`,
		runID, started.UTC().UnixMilli(), iterations, mode,
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	return nil
}

// RecordImprovement appends one improvement for runID.
func (l *Ledger) RecordImprovement(ctx context.Context, runID string, rec policy.ImprovementRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO improvements
			(run_id, iteration, score, net_emissions, total_cost, public_opinion, power_reliability, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Iteration, rec.Score, rec.NetEmissions, rec.TotalCost, rec.PublicOpinion, rec.PowerReliability,
		ts.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record improvement for %s: %w", runID, err)
	}
	return nil
}

// Improvements returns runID's improvements in the order they were found.
func (l *Ledger) Improvements(ctx context.Context, runID string) ([]policy.ImprovementRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT iteration, score, net_emissions, total_cost, public_opinion, power_reliability, recorded_at
		FROM improvements WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query improvements: %w", err)
	}
	defer rows.Close()

	var out []policy.ImprovementRecord
	for rows.Next() {
		var rec policy.ImprovementRecord
		var ms int64
		if err := rows.Scan(&rec.Iteration, &rec.Score, &rec.NetEmissions, &rec.TotalCost,
			&rec.PublicOpinion, &rec.PowerReliability, &ms); err != nil {
			return nil, err
		}
		rec.Timestamp = time.UnixMilli(ms).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Runs lists every run, newest first, with its improvement count and best score.
func (l *Ledger) Runs(ctx context.Context) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT r.run_id, r.started_at, r.iterations, r.mode,
		       COUNT(i.id), COALESCE(MAX(i.score), 0)
		FROM runs r LEFT JOIN improvements i ON i.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at DESC, r.run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ms int64
		if err := rows.Scan(&r.ID, &ms, &r.Iterations, &r.Mode, &r.Improvements, &r.BestScore); err != nil {
			return nil, err
		}
		r.Started = time.UnixMilli(ms).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
