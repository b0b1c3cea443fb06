// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores raw catalog API responses in SQLite so repeated and
// resumed runs do not burn request quota on data already fetched.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "responses.db"

// Cache is a keyed response cache. Entries are keyed by (endpoint, id) and
// carry a fetch timestamp so callers can bound staleness.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database under dir, creating the schema
// if it does not exist.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	c := &Cache{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) createSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS responses (
    endpoint   TEXT NOT NULL,
    id         TEXT NOT NULL,
    fetched_at TIMESTAMP NOT NULL,
    body       BLOB NOT NULL,
    PRIMARY KEY (endpoint, id)
);`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached body for (endpoint, id) when it exists and was
// fetched within maxAge. A zero maxAge means entries never expire. The
// second return value reports a hit.
func (c *Cache) Get(ctx context.Context, endpoint, id string, maxAge time.Duration) ([]byte, bool, error) {
	var body []byte
	var fetchedAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM responses WHERE endpoint = ? AND id = ?`,
		endpoint, id,
	).Scan(&body, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache: %w", err)
	}
	if maxAge > 0 && time.Since(fetchedAt) > maxAge {
		return nil, false, nil
	}
	return body, true, nil
}

// Put stores or replaces the body for (endpoint, id).
func (c *Cache) Put(ctx context.Context, endpoint, id string, body []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO responses (endpoint, id, fetched_at, body) VALUES (?, ?, ?, ?)`,
		endpoint, id, time.Now().UTC(), body,
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}
