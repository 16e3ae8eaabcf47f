package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"langtutor/internal/cache"
	"langtutor/internal/services/news"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit rejects clients over their budget with 429 and the standard
// error envelope.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			if !limiter.Allow(r.Context(), cache.RateLimitKey(clientIP)) {
				log.Warn().
					Str("client_ip", clientIP).
					Str("url", r.URL.String()).
					Msg("Rate limit exceeded")

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)

				_ = json.NewEncoder(w).Encode(news.NewErrorResponse(news.ErrCodeRateLimit, "Rate limit exceeded. Please try again later."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the real client IP address
func getClientIP(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// SimpleRateLimiter is an in-process token bucket per client.
type SimpleRateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	burstSize         int
	clients           map[string]*clientLimit
	now               func() time.Time
}

type clientLimit struct {
	tokens     int
	lastRefill time.Time
}

func NewSimpleRateLimiter(requestsPerMinute, burstSize int) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		requestsPerMinute: requestsPerMinute,
		burstSize:         burstSize,
		clients:           make(map[string]*clientLimit),
		now:               time.Now,
	}
}

func (rl *SimpleRateLimiter) Allow(_ context.Context, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[key]
	if !exists {
		client = &clientLimit{tokens: rl.burstSize, lastRefill: now}
		rl.clients[key] = client
	}

	tokensToAdd := int(now.Sub(client.lastRefill).Minutes() * float64(rl.requestsPerMinute))
	if tokensToAdd > 0 {
		client.tokens = min(client.tokens+tokensToAdd, rl.burstSize)
		client.lastRefill = now
	}

	if client.tokens > 0 {
		client.tokens--
		return true
	}
	return false
}

// Counter is a shared fixed-window counter, such as cache.RedisCache.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateLimiter allows requestsPerMinute per client across instances.
// It fails open when the counter is unavailable.
type RedisRateLimiter struct {
	counter           Counter
	requestsPerMinute int
}

func NewRedisRateLimiter(counter Counter, requestsPerMinute int) *RedisRateLimiter {
	return &RedisRateLimiter{counter: counter, requestsPerMinute: requestsPerMinute}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	n, err := rl.counter.Incr(ctx, key, time.Minute)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Rate limit counter unavailable")
		return true
	}
	return n <= int64(rl.requestsPerMinute)
}
