// Package store persists projects, scenes and build jobs in SQLite. It is
// the durable side of the pipeline: scene artifacts are only ever written
// against the exact source they were compiled from, and build jobs move
// through their state machine with conditional updates so concurrent workers
// cannot double-claim.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrStaleSource is returned when an artifact write lost the race against a
// source edit. The caller must recompile against the current source; the
// stale artifact is discarded, never stored.
var ErrStaleSource = errors.New("store: source changed since compilation")

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New creates or opens the scene database at dir/scenesmith.db.
func New(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "scenesmith.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scenes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		ord INTEGER NOT NULL,
		name TEXT NOT NULL,
		source_code TEXT NOT NULL,
		compiled_code TEXT NOT NULL DEFAULT '',
		compiled_at DATETIME,
		compilation_error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_scenes_project ON scenes(project_id, ord);

	CREATE TABLE IF NOT EXISTS build_jobs (
		id TEXT PRIMARY KEY,
		source_code TEXT NOT NULL,
		status TEXT NOT NULL,
		artifact_ref TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON build_jobs(status, updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}
