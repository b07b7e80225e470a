// Package state persists sync bookkeeping in SQLite: the last successful
// sync instant and a short history of sync runs.
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	status      TEXT NOT NULL,
	pushed      INTEGER NOT NULL DEFAULT 0,
	pulled      INTEGER NOT NULL DEFAULT 0,
	detail      TEXT NOT NULL DEFAULT ''
);
`

const lastSyncKey = "last_sync"

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded sync cycle.
type Run struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Pushed     int       `json:"pushed"`
	Pulled     int       `json:"pulled"`
	Detail     string    `json:"detail,omitempty"`
}

// Store wraps a sql.DB with sync-state operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("state: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// LastSync returns the instant of the last fully successful sync, or the
// zero time when no sync has completed yet.
func (s *Store) LastSync() (time.Time, error) {
	var raw string
	err := s.conn.QueryRow(`SELECT value FROM sync_meta WHERE key = ?`, lastSyncKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("state: last sync: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("state: last sync: parse %q: %w", raw, err)
	}
	return t, nil
}

// SetLastSync advances the last-sync instant. Called only after a cycle
// completes without error.
func (s *Store) SetLastSync(t time.Time) error {
	_, err := s.conn.Exec(`
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, lastSyncKey, t.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("state: set last sync: %w", err)
	}
	return nil
}

// RecordRun appends a sync run to the history.
func (s *Store) RecordRun(r Run) error {
	_, err := s.conn.Exec(`
		INSERT INTO sync_runs (started_at, finished_at, status, pushed, pulled, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.Status, r.Pushed, r.Pulled, r.Detail)
	if err != nil {
		return fmt.Errorf("state: record run: %w", err)
	}
	return nil
}

// RecentRuns returns the n most recent sync runs, newest first.
func (s *Store) RecentRuns(n int) ([]Run, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.conn.Query(`
		SELECT started_at, finished_at, status, pushed, pulled, detail
		FROM sync_runs ORDER BY id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("state: recent runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&started, &finished, &r.Status, &r.Pushed, &r.Pulled, &r.Detail); err != nil {
			return nil, fmt.Errorf("state: recent runs: scan: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
