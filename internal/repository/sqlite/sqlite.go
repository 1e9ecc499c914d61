// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary
// builds without cgo. The database is opened in WAL mode so reads proceed
// concurrently with a write, and foreign keys are enabled.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the connection pool and hands out the per-entity stores.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every pool connection to ":memory:" opens its own empty database,
		// so the pool must stay at a single connection.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user store backed by this database.
func (db *DB) Users() *UserStore { return &UserStore{conn: db.conn} }

// Videos returns the video store backed by this database.
func (db *DB) Videos() *VideoStore { return &VideoStore{conn: db.conn} }

// Subscriptions returns the subscription store backed by this database.
func (db *DB) Subscriptions() *SubscriptionStore { return &SubscriptionStore{conn: db.conn} }

func (db *DB) migrate() error {
	// username and email are stored lowercased; the UNIQUE constraints are
	// therefore case-insensitive in effect.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			full_name     TEXT NOT NULL,
			avatar_url    TEXT NOT NULL,
			cover_url     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS videos (
			id            TEXT PRIMARY KEY,
			owner_id      TEXT NOT NULL REFERENCES users(id),
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			video_url     TEXT NOT NULL,
			thumbnail_url TEXT NOT NULL DEFAULT '',
			duration_ns   INTEGER NOT NULL DEFAULT 0,
			views         INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_videos_owner_id ON videos(owner_id);
	`)
	if err != nil {
		return fmt.Errorf("creating videos table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS subscriptions (
			id            TEXT PRIMARY KEY,
			subscriber_id TEXT NOT NULL REFERENCES users(id),
			channel_id    TEXT NOT NULL REFERENCES users(id),
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_channel_id ON subscriptions(channel_id);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_subscriber_id ON subscriptions(subscriber_id);
	`)
	if err != nil {
		return fmt.Errorf("creating subscriptions table: %w", err)
	}

	// video_id is deliberately not a foreign key: history entries must
	// survive the deletion of their target and be skipped on read.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS watch_history (
			user_id  TEXT NOT NULL REFERENCES users(id),
			video_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (user_id, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating watch_history table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes constraint failures only through the error
// text, so this is a string match on SQLite's stable message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
