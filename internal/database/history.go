// Package database persists a download history: one row per attachment
// outcome, so repeated runs against the same posts stay auditable.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no history exists for a URL.
var ErrNotFound = errors.New("no history entry found")

// Status values recorded per attachment outcome.
const (
	StatusDownloaded = "Downloaded"
	StatusError      = "Error"
)

// Entry is one recorded attachment outcome.
type Entry struct {
	URL          string
	PostID       string
	Filename     string
	Status       string
	LocalPath    string
	ErrorDetails string
	Bytes        int64
}

// DB wraps the SQLite history database.
type DB struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

// Open initializes the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database at %s: %w", path, err)
	}

	wrapper := &DB{db: db}
	if err := wrapper.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return wrapper, nil
}

func (d *DB) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS download_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	post_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	local_path TEXT NOT NULL DEFAULT '',
	error_details TEXT NOT NULL DEFAULT '',
	bytes INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_download_history_url ON download_history(url);
`
	_, err := d.db.Exec(schema)
	return err
}

// Record appends one outcome row.
func (d *DB) Record(e Entry) error {
	_, err := d.db.Exec(
		`INSERT INTO download_history (url, post_id, filename, status, local_path, error_details, bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.URL, e.PostID, e.Filename, e.Status, e.LocalPath, e.ErrorDetails, e.Bytes,
	)
	if err != nil {
		log.WithError(err).Errorf("Failed to record history entry for %s", e.URL)
		return fmt.Errorf("failed to record history entry for %s: %w", e.URL, err)
	}
	return nil
}

// LastStatus returns the most recent entry for a URL, or ErrNotFound.
func (d *DB) LastStatus(url string) (Entry, error) {
	row := d.db.QueryRow(
		`SELECT url, post_id, filename, status, local_path, error_details, bytes
		 FROM download_history WHERE url = ? ORDER BY id DESC LIMIT 1`, url)

	var e Entry
	err := row.Scan(&e.URL, &e.PostID, &e.Filename, &e.Status, &e.LocalPath, &e.ErrorDetails, &e.Bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query history for %s: %w", url, err)
	}
	return e, nil
}

// Count reports the number of recorded entries.
func (d *DB) Count() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM download_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database. Safe to call more than once.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}
