// Package apicache stores upstream government-data responses for a fixed TTL.
package apicache

import (
	"context"
	"encoding/json"
	"time"
)

type Cache interface {
	// Get returns the cached document for key. A miss or an expired entry
	// reports false.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key, provider string, data json.RawMessage, ttl time.Duration) error
	// Purge removes expired entries and reports how many were removed.
	Purge(ctx context.Context) (int64, error)
}
