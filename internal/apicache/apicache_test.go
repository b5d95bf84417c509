package apicache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertypassport/internal/db"
)

func newSQLCache(t *testing.T) *SQLCache {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return NewSQLCache(d)
}

func TestSQLCacheSetAndGet(t *testing.T) {
	c := newSQLCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "epc:SW1A 1AA")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "epc:SW1A 1AA", "epc", json.RawMessage(`{"rows":[1]}`), time.Hour))

	got, ok, err := c.Get(ctx, "epc:SW1A 1AA")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"rows":[1]}`, string(got))
}

func TestSQLCacheSet_Overwrites(t *testing.T) {
	c := newSQLCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "crime", json.RawMessage(`{"v":1}`), time.Hour))
	require.NoError(t, c.Set(ctx, "k", "crime", json.RawMessage(`{"v":2}`), time.Hour))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestSQLCacheExpiry(t *testing.T) {
	c := newSQLCache(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return start }
	require.NoError(t, c.Set(ctx, "flood:51.5,-0.1", "flood-risk", json.RawMessage(`{}`), time.Hour))
	require.NoError(t, c.Set(ctx, "epc:BA1 1AA", "epc", json.RawMessage(`{}`), 7*24*time.Hour))

	c.now = func() time.Time { return start.Add(time.Hour) }
	_, ok, err := c.Get(ctx, "flood:51.5,-0.1")
	require.NoError(t, err)
	assert.False(t, ok, "an entry is stale once now reaches expires_at")

	_, ok, err = c.Get(ctx, "epc:BA1 1AA")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisCache(client)

	key := "test:" + uuid.NewString()
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, "epc", json.RawMessage(`{"a":1}`), time.Minute))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(got))

	ttl, err := client.TTL(ctx, redisKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
