package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestSimpleRateLimiter(t *testing.T) {
	rl := NewSimpleRateLimiter(60, 2)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	ctx := context.Background()

	assert.True(t, rl.Allow(ctx, "a"))
	assert.True(t, rl.Allow(ctx, "a"))
	assert.False(t, rl.Allow(ctx, "a"))
	assert.True(t, rl.Allow(ctx, "b"), "clients are independent")

	clock = clock.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow(ctx, "a"), "one token refilled")
	assert.False(t, rl.Allow(ctx, "a"))
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (c *fakeCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func TestRedisRateLimiter(t *testing.T) {
	ctx := context.Background()
	rl := NewRedisRateLimiter(&fakeCounter{counts: map[string]int64{}}, 2)
	assert.True(t, rl.Allow(ctx, "k"))
	assert.True(t, rl.Allow(ctx, "k"))
	assert.False(t, rl.Allow(ctx, "k"))

	down := NewRedisRateLimiter(&fakeCounter{err: errors.New("connection refused")}, 1)
	assert.True(t, down.Allow(ctx, "k"), "fails open")
}

func TestRateLimit_Middleware(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	h := RateLimit(NewRedisRateLimiter(counter, 1))(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"RATE_LIMIT","message":"Rate limit exceeded. Please try again later."}}`, rec.Body.String())
	assert.Equal(t, int64(2), counter.counts["ratelimit:ip:10.0.0.1"])
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", getClientIP(req))
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLogging(t *testing.T) {
	rec := httptest.NewRecorder()
	Logging(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
