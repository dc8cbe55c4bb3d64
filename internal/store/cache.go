// Package store implements the device-local cache: a persistent key-value
// store of JSON-serialized snapshots, scoped per user ID by key prefix.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Cache is a SQLite-backed key-value store. Values are JSON strings; key
// naming ("{uid}-activities", "{uid}-habits", ...) is owned by the caller.
type Cache struct {
	db *sqlx.DB
}

// Open opens (or creates) a cache database at dbPath, enables WAL mode,
// and runs any pending schema migrations.
func Open(dbPath string) (*Cache, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &Cache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *Cache) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Get retrieves a single value. The boolean reports whether the key exists.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.GetContext(ctx, &value, "SELECT value FROM cache WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting cache key %q: %w", key, err)
	}
	return value, true, nil
}

// MultiGet retrieves several keys at once. Absent keys are simply missing
// from the returned map.
func (c *Cache) MultiGet(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	query, args, err := sqlx.In("SELECT key, value FROM cache WHERE key IN (?)", keys)
	if err != nil {
		return nil, fmt.Errorf("building multi-get query: %w", err)
	}

	rows, err := c.db.QueryxContext(ctx, c.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying cache keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning cache row: %w", err)
		}
		out[key] = value
	}

	return out, rows.Err()
}

// Set stores a single key-value pair.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache (key, value, updated_at)
		VALUES (?, ?, ?)`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting cache key %q: %w", key, err)
	}
	return nil
}

// MultiSet stores several key-value pairs in one transaction, so a snapshot
// is never half-written.
func (c *Cache) MultiSet(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO cache (key, value, updated_at)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing cache upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for key, value := range entries {
		if _, err := stmt.ExecContext(ctx, key, value, now); err != nil {
			return fmt.Errorf("setting cache key %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// Delete removes a key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting cache key %q: %w", key, err)
	}
	return nil
}
