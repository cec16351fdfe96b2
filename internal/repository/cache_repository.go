package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/johncarlocos/topx-betting-mern/pkg/database"
	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
)

// CacheRepository is the durable cache tier, backed by Postgres. Entries
// are immutable once written and overwritten wholesale on refresh. Expiry
// is enforced twice: every read filters on expires_at, and a background
// reaper prunes expired rows.
type CacheRepository struct {
	db *database.DB
}

func NewCacheRepository(db *database.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// EnsureSchema creates the cache table and its expiry index.
func (r *CacheRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at
			ON cache_entries (expires_at);
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure cache schema: %w", err)
	}
	return nil
}

// Get returns the entry only while unexpired.
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `
		SELECT value FROM cache_entries
		WHERE key = $1 AND expires_at > NOW()
	`

	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	return value, true, nil
}

// Set upserts the entry with a fresh expiry.
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`

	if _, err := r.db.ExecContext(ctx, query, key, value, ttl.Seconds()); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// GetMany fetches every unexpired entry for the given keys in a single
// query. The match list uses this instead of N per-fixture lookups.
func (r *CacheRepository) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	entries := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return entries, nil
	}

	query := `
		SELECT key, value FROM cache_entries
		WHERE key = ANY($1) AND expires_at > NOW()
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to batch read cache entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache entries: %w", err)
	}

	return entries, nil
}

// DeleteExpired prunes rows past their expiry.
func (r *CacheRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return count, nil
}

// StartReaper prunes expired rows on an interval, standing in for a
// store-native TTL index. Returns a stop function.
func (r *CacheRepository) StartReaper(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				count, err := r.DeleteExpired(ctx)
				cancel()
				if err != nil {
					logger.Error("Cache reaper failed", "error", err)
				} else if count > 0 {
					logger.Debug("Cache reaper pruned entries", "count", count)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
