// Package history persists finished session summaries in SQLite so that
// progress can be reviewed across workouts.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/formcheck/formcheck/analyzer/internal/summary"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// schema.sql creates the session_summary and session_metric tables.
//
//go:embed schema.sql
var schemaSQL string

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// ErrNotFound is returned by Get for an unknown record ID.
var ErrNotFound = errors.New("history: record not found")

// Record is a stored summary.
type Record struct {
	ID      string    `json:"id"`
	SavedAt time.Time `json:"saved_at"`
	summary.Summary
}

// DB is the session history database.
type DB struct {
	*sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// A single connection keeps PRAGMAs in effect and serialises writers.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{DB: db, now: time.Now}, nil
}

// Save stores s and returns the new record ID.
func (db *DB) Save(ctx context.Context, s summary.Summary) (string, error) {
	id := uuid.NewString()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_summary (
			record_id, session_id, exercise, started_unix_nanos, ended_unix_nanos,
			saved_unix_nanos, frames, tracked_frames, reps, correct, incorrect,
			safe_ns, caution_ns, unsafe_ns, tracking_lost_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.SessionID, s.Exercise, s.Started.UnixNano(), s.Ended.UnixNano(),
		db.now().UnixNano(), s.Frames, s.TrackedFrames, s.Reps, s.Correct, s.Incorrect,
		int64(s.TimeInZone[zone.Safe]), int64(s.TimeInZone[zone.Caution]),
		int64(s.TimeInZone[zone.Unsafe]), int64(s.TrackingLost),
	)
	if err != nil {
		return "", fmt.Errorf("history: insert summary: %w", err)
	}

	for name, m := range s.Metrics {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO session_metric (record_id, metric, samples, mean, stddev, min, max)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, name, m.Samples, m.Mean, m.StdDev, m.Min, m.Max,
		)
		if err != nil {
			return "", fmt.Errorf("history: insert metric %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("history: commit: %w", err)
	}
	return id, nil
}

const selectSummary = `SELECT record_id, session_id, exercise, started_unix_nanos,
	ended_unix_nanos, saved_unix_nanos, frames, tracked_frames, reps, correct,
	incorrect, safe_ns, caution_ns, unsafe_ns, tracking_lost_ns
	FROM session_summary`

// List returns up to limit records, newest first. limit <= 0 means all.
func (db *DB) List(ctx context.Context, limit int) ([]Record, error) {
	q := selectSummary + ` ORDER BY saved_unix_nanos DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	rows.Close()

	for i := range out {
		if out[i].Metrics, err = db.metrics(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (Record, error) {
	row := db.QueryRowContext(ctx, selectSummary+` WHERE record_id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if r.Metrics, err = db.metrics(ctx, id); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (db *DB) metrics(ctx context.Context, id string) (map[string]summary.MetricStats, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT metric, samples, mean, stddev, min, max FROM session_metric WHERE record_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("history: metrics for %s: %w", id, err)
	}
	defer rows.Close()

	out := make(map[string]summary.MetricStats)
	for rows.Next() {
		var name string
		var m summary.MetricStats
		if err := rows.Scan(&name, &m.Samples, &m.Mean, &m.StdDev, &m.Min, &m.Max); err != nil {
			return nil, fmt.Errorf("history: scan metric: %w", err)
		}
		out[name] = m
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r                               Record
		started, ended, saved           int64
		safe, caution, unsafe, lostNano int64
	)
	err := sc.Scan(&r.ID, &r.SessionID, &r.Exercise, &started, &ended, &saved,
		&r.Frames, &r.TrackedFrames, &r.Reps, &r.Correct, &r.Incorrect,
		&safe, &caution, &unsafe, &lostNano)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("history: scan summary: %w", err)
	}
	r.Started = time.Unix(0, started).UTC()
	r.Ended = time.Unix(0, ended).UTC()
	r.SavedAt = time.Unix(0, saved).UTC()
	r.TimeInZone = map[zone.Level]time.Duration{
		zone.Safe:    time.Duration(safe),
		zone.Caution: time.Duration(caution),
		zone.Unsafe:  time.Duration(unsafe),
	}
	r.TrackingLost = time.Duration(lostNano)
	return r, nil
}

