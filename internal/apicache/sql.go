package apicache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLCache keeps entries in the api_cache table.
type SQLCache struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLCache(db *sql.DB) *SQLCache {
	return &SQLCache{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (c *SQLCache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var response string
	err := c.db.QueryRowContext(ctx, `
		SELECT response FROM api_cache WHERE cache_key = ? AND expires_at > ?
	`, key, c.now()).Scan(&response)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	return json.RawMessage(response), true, nil
}

// Set replaces any existing entry for key.
func (c *SQLCache) Set(ctx context.Context, key, provider string, data json.RawMessage, ttl time.Duration) error {
	now := c.now()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO api_cache (cache_key, provider, response, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			provider = excluded.provider,
			response = excluded.response,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, key, provider, string(data), now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

func (c *SQLCache) Purge(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM api_cache WHERE expires_at <= ?`, c.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
