// Package state persists per-track ingest progress in a SQLite journal
// so an interrupted run can resume without re-downloading or
// re-splitting finished tracks.
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const currentSchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per manifest track
CREATE TABLE IF NOT EXISTS assets (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  track_name TEXT UNIQUE NOT NULL,
  uri TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  segments INTEGER DEFAULT 0,
  error TEXT,
  first_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  last_update_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_assets_status ON assets(status);
`

// Asset status values
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusError   = "error"
)

// Asset is one manifest track's journal entry
type Asset struct {
	ID          int64
	TrackName   string
	URI         string
	Status      string
	Segments    int
	Error       string
	FirstSeenAt time.Time
	LastUpdate  time.Time
}

// Store is the SQLite-backed ingest journal
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database at path
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}
	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// UpsertAsset registers a track, keeping existing status if already present
func (s *Store) UpsertAsset(trackName, uri string) error {
	_, err := s.db.Exec(`
		INSERT INTO assets (track_name, uri) VALUES (?, ?)
		ON CONFLICT(track_name) DO UPDATE SET
			uri = excluded.uri,
			last_update_at = CURRENT_TIMESTAMP
	`, trackName, uri)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", trackName, err)
	}
	return nil
}

// MarkDone records a successfully split track and its segment count
func (s *Store) MarkDone(trackName string, segments int) error {
	_, err := s.db.Exec(`
		UPDATE assets SET status = ?, segments = ?, error = '',
			last_update_at = CURRENT_TIMESTAMP
		WHERE track_name = ?
	`, StatusDone, segments, trackName)
	if err != nil {
		return fmt.Errorf("failed to mark %s done: %w", trackName, err)
	}
	return nil
}

// MarkError records a failed track with its error message.
// Errored tracks are retried on the next run.
func (s *Store) MarkError(trackName, message string) error {
	_, err := s.db.Exec(`
		UPDATE assets SET status = ?, error = ?,
			last_update_at = CURRENT_TIMESTAMP
		WHERE track_name = ?
	`, StatusError, message, trackName)
	if err != nil {
		return fmt.Errorf("failed to mark %s errored: %w", trackName, err)
	}
	return nil
}

// GetAsset fetches one track's journal entry
func (s *Store) GetAsset(trackName string) (*Asset, error) {
	row := s.db.QueryRow(`
		SELECT id, track_name, uri, status, segments, COALESCE(error, ''),
			first_seen_at, last_update_at
		FROM assets WHERE track_name = ?
	`, trackName)

	var a Asset
	err := row.Scan(&a.ID, &a.TrackName, &a.URI, &a.Status, &a.Segments,
		&a.Error, &a.FirstSeenAt, &a.LastUpdate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", trackName, err)
	}
	return &a, nil
}

// StatusMap returns track name -> status for all journaled tracks
func (s *Store) StatusMap() (map[string]string, error) {
	rows, err := s.db.Query("SELECT track_name, status FROM assets")
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]string)
	for rows.Next() {
		var name, status string
		if err := rows.Scan(&name, &status); err != nil {
			return nil, err
		}
		statuses[name] = status
	}
	return statuses, rows.Err()
}

// CountByStatus returns how many tracks are in each status
func (s *Store) CountByStatus() (map[string]int, error) {
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM assets GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// DeleteAsset removes a track's journal entry
func (s *Store) DeleteAsset(trackName string) error {
	_, err := s.db.Exec("DELETE FROM assets WHERE track_name = ?", trackName)
	if err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", trackName, err)
	}
	return nil
}
