package web

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// maxLimiters bounds the per-caller table. It is reset when full.
const maxLimiters = 10000

// rateLimiter keeps one token bucket per caller. A zero rate disables it.
type rateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

func (rl *rateLimiter) allow(key string) bool {
	if rl.rate <= 0 {
		return true
	}
	return rl.limiter(key).Allow()
}

// limitKey is the caller's user id, or the client address when anonymous.
func limitKey(r *http.Request) string {
	if u := callerFrom(r.Context()); u != nil {
		return "user:" + u.ID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

// limited must run inside withCaller so authenticated callers get their own bucket.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := limitKey(r)
		if !s.limiter.allow(key) {
			s.logger.Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			s.writeJSON(w, http.StatusTooManyRequests, envelope{Success: false, Error: "rate limit exceeded"})
			return
		}
		next(w, r)
	}
}
