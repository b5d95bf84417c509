package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/propertypassport/internal/domain"
)

func TestRateLimiter_PerKeyBuckets(t *testing.T) {
	rl := newRateLimiter(0.001, 2)

	assert.True(t, rl.allow("user:a"))
	assert.True(t, rl.allow("user:a"))
	assert.False(t, rl.allow("user:a"), "burst exhausted")
	assert.True(t, rl.allow("user:b"), "other callers keep their own bucket")
}

func TestRateLimiter_ZeroRateDisables(t *testing.T) {
	rl := newRateLimiter(0, 0)
	for range 100 {
		assert.True(t, rl.allow("addr:192.0.2.1"))
	}
}

func TestLimitKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/govdata/epc", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "addr:192.0.2.7", limitKey(r))

	id := uuid.New()
	r = r.WithContext(context.WithValue(r.Context(), callerKey{}, &domain.User{ID: id}))
	assert.Equal(t, "user:"+id.String(), limitKey(r))
}
