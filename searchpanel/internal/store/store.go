// Package store is the transient cache in front of the search service.
//
// Entries live in a SQLite table shared by every process that serves
// panels. A read after expires_at is a miss; a read while the context
// carries kit.ForceFresh is a miss too, but writes still go through so the
// cache is refreshed while it is being bypassed.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hazyhaar/qmsearch/kit"
)

// TTL is the lifetime of every cache entry. There is no per-call override.
const TTL = 30 * time.Minute

// Cache keys.
const (
	KeyIndices        = "qmsearch_indices_cache"
	keySettingsPrefix = "qmsearch_indices_settings_cache:"
)

// SettingsKey returns the cache key for one index's settings document.
func SettingsKey(index string) string {
	return keySettingsPrefix + index
}

// Schema is the DDL for the transients table.
const Schema = `
CREATE TABLE IF NOT EXISTS transients (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transients_expires ON transients(expires_at);
`

// Lookup results reported to the Observer.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultBypass = "bypass"
)

// Entry is one cached value.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// Cache is the transient store.
type Cache struct {
	DB       *sql.DB
	now      func() time.Time
	group    singleflight.Group
	observer func(result string)
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithObserver reports every Get outcome (hit, miss, bypass).
func WithObserver(fn func(result string)) Option { return func(c *Cache) { c.observer = fn } }

// New wraps an already opened database. The schema must be applied.
func New(db *sql.DB, opts ...Option) *Cache {
	c := &Cache{DB: db, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached value for key. Expired entries and force-fresh
// contexts report a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if kit.ForceFresh(ctx) {
		c.observe(ResultBypass)
		return nil, false, nil
	}

	var value []byte
	var expiresAt int64
	err := c.DB.QueryRowContext(ctx,
		`SELECT value, expires_at FROM transients WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.observe(ResultMiss)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s: %w", key, err)
	}
	if c.now().UnixMilli() >= expiresAt {
		c.observe(ResultMiss)
		return nil, false, nil
	}
	c.observe(ResultHit)
	return value, true, nil
}

// Set stores value under key for TTL. Last writer wins.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	expiresAt := c.now().Add(TTL).UnixMilli()
	_, err := c.DB.ExecContext(ctx, `
		INSERT INTO transients (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.DB.ExecContext(ctx, `DELETE FROM transients WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// Entries lists every stored entry, expired or not, ordered by key.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := c.DB.QueryContext(ctx,
		`SELECT key, value, expires_at FROM transients ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store: entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var expiresAt int64
		if err := rows.Scan(&e.Key, &e.Value, &expiresAt); err != nil {
			return nil, err
		}
		e.ExpiresAt = time.UnixMilli(expiresAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExpired purges entries past their expiry and returns how many went.
func (c *Cache) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := c.DB.ExecContext(ctx,
		`DELETE FROM transients WHERE expires_at <= ?`, c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: delete expired: %w", err)
	}
	return res.RowsAffected()
}

// Purge removes every entry.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.DB.ExecContext(ctx, `DELETE FROM transients`)
	if err != nil {
		return 0, fmt.Errorf("store: purge: %w", err)
	}
	return res.RowsAffected()
}

func (c *Cache) observe(result string) {
	if c.observer != nil {
		c.observer(result)
	}
}
