package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dash/internal/shared"
)

// ContentCache keeps upstream response bodies in the content_cache table until they expire.
type ContentCache struct {
	store
}

// NewContentCache creates a new [ContentCache] with the given database connection
func NewContentCache(db *sql.DB, driver shared.Driver, clock shared.Clock) *ContentCache {
	return &ContentCache{store: newStore(db, driver, clock)}
}

// Get returns the body stored under key, or [shared.ErrCacheMiss] when it is absent or expired.
func (c *ContentCache) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := c.queryRow(ctx,
		"SELECT body FROM content_cache WHERE cache_key = ? AND expires_at > ?",
		key, c.clock.Now().Unix(),
	).Scan(&body)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return body, nil
}

// Set stores body under key for ttl, replacing any previous entry.
func (c *ContentCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive", shared.ErrInvalidInput)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, c.driver.Rebind("DELETE FROM content_cache WHERE cache_key = ?"), key); err != nil {
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}

	expires := c.clock.Now().Add(ttl).Unix()
	if _, err := tx.ExecContext(ctx,
		c.driver.Rebind("INSERT INTO content_cache (cache_key, body, expires_at) VALUES (?, ?, ?)"),
		key, body, expires,
	); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return tx.Commit()
}

// Delete removes the entry under key.
func (c *ContentCache) Delete(ctx context.Context, key string) error {
	if _, err := c.exec(ctx, "DELETE FROM content_cache WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Purge removes expired entries and returns how many were removed.
func (c *ContentCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.exec(ctx, "DELETE FROM content_cache WHERE expires_at <= ?", c.clock.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}
