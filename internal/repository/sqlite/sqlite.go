// Package sqlite implements the repository interfaces on an embedded
// SQLite database via the pure-Go modernc.org/sqlite driver (no CGo, so
// cross-compilation stays trivial).
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the connection pool and carries all repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" in tests.
//
// The pool is pinned to a single connection: SQLite allows one writer at a
// time, and funnelling everything through one connection turns would-be
// SQLITE_BUSY errors into ordinary queueing. Transaction isolation, which
// the identity resolver's correctness rests on, is unaffected.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows reads to proceed during a write; busy_timeout makes a
	// briefly-locked database wait instead of erroring.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer it wherever New is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	// Username uniqueness is case-insensitive: COLLATE NOCASE on the
	// column makes both the UNIQUE constraint and equality comparisons
	// case-fold, so lookup and constraint can never disagree.
	//
	// The row-level CHECK enforces the credential invariant: every
	// account is reachable by password, Google, or both, never neither.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL DEFAULT '',
			google_id     TEXT,
			role          TEXT NOT NULL DEFAULT 'contributor'
			              CHECK (role IN ('admin', 'contributor')),
			display_name  TEXT NOT NULL DEFAULT '',
			photo         TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK (password_hash <> '' OR google_id IS NOT NULL)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_google_id
			ON users(google_id) WHERE google_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date         TEXT NOT NULL DEFAULT '',
			role         TEXT NOT NULL DEFAULT '',
			company      TEXT NOT NULL DEFAULT '',
			source_link  TEXT NOT NULL DEFAULT '',
			company_link TEXT NOT NULL DEFAULT '',
			resume       INTEGER NOT NULL DEFAULT 0,
			cover_letter INTEGER NOT NULL DEFAULT 0,
			status       TEXT NOT NULL DEFAULT 'Applied',
			recruiter    TEXT NOT NULL DEFAULT '',
			hiring_mgr   TEXT NOT NULL DEFAULT '',
			panel        TEXT NOT NULL DEFAULT '',
			hr           TEXT NOT NULL DEFAULT '',
			comments     TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_user_id ON jobs(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating jobs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS dropdown_options (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			field_name TEXT NOT NULL,
			label      TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			UNIQUE (field_name, label)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating dropdown_options table: %w", err)
	}

	return db.seedDropdowns()
}

// seedDropdowns installs the default Status vocabulary on first run.
// INSERT OR IGNORE keeps it idempotent across restarts and leaves
// admin-edited vocabularies alone.
func (db *DB) seedDropdowns() error {
	defaults := []string{"Applied", "Phone Screen", "Interview", "Offer", "Rejected", "Archived"}
	for i, label := range defaults {
		_, err := db.conn.Exec(
			`INSERT OR IGNORE INTO dropdown_options (field_name, label, sort_order) VALUES (?, ?, ?)`,
			"Status", label, i,
		)
		if err != nil {
			return fmt.Errorf("seeding dropdown option %q: %w", label, err)
		}
	}
	return nil
}
