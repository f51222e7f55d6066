package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store is the local progress store: a per-device SQLite database holding
// per-owner chapter completion, course completion timestamps and quiz scores.
type Store struct {
	db *sql.DB
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates the schema if needed.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas configures SQLite for single-user durability and performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// migrate creates the schema. Every table is keyed by a composite of the
// owner identity and the entity id so that a signed-in account change on
// the same device never reads another learner's progress.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chapter_progress (
			owner_id   TEXT NOT NULL,
			chapter_id TEXT NOT NULL,
			course_id  TEXT NOT NULL,
			status     TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (owner_id, chapter_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chapter_progress_course
			ON chapter_progress (owner_id, course_id)`,
		`CREATE TABLE IF NOT EXISTS course_completion (
			owner_id     TEXT NOT NULL,
			course_id    TEXT NOT NULL,
			completed_at TIMESTAMP NOT NULL,
			PRIMARY KEY (owner_id, course_id)
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_score (
			owner_id        TEXT NOT NULL,
			quiz_id         TEXT NOT NULL,
			course_id       TEXT NOT NULL,
			correct_answers INTEGER NOT NULL,
			total_questions INTEGER NOT NULL,
			percentage      INTEGER NOT NULL,
			completed_at    TIMESTAMP NOT NULL,
			PRIMARY KEY (owner_id, quiz_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. KOICOURSE_DB environment variable
// 2. $XDG_DATA_HOME/koicourse/koicourse.db
// 3. ~/.local/share/koicourse/koicourse.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("KOICOURSE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "koicourse", "koicourse.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
