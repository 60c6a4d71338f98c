package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database that caches users, posts and search
// history between runs.
type DB struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open creates or opens the SQLite cache database and runs migrations.
func Open(path string) (*DB, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &DB{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) fresh(fetchedAt int64, ttl time.Duration) bool {
	return d.now().Sub(time.Unix(fetchedAt, 0)) < ttl
}

// getOne runs a single-row query into dst. A missing row is reported as
// found == false with no error.
func (d *DB) getOne(ctx context.Context, dst interface{}, query string, args ...interface{}) (bool, error) {
	err := d.db.GetContext(ctx, dst, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT,
			created_at INTEGER,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,

		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			caption TEXT,
			media_url TEXT NOT NULL,
			flagged INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			likes_count INTEGER DEFAULT 0,
			liked_by_viewer INTEGER DEFAULT 0,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_user ON posts(user_id)`,

		`CREATE TABLE IF NOT EXISTS searches (
			query TEXT PRIMARY KEY,
			searched_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS feed_watch (
			user_id INTEGER PRIMARY KEY,
			head_post_id INTEGER NOT NULL,
			checked_at INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
