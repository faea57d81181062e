package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/wonny/gedash/pkg/config"
)

// slidingWindow admits a request when fewer than limit requests were
// admitted in the trailing window
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	else
		return {0, 0}
	end
`)

// RateLimiter implements sliding window rate limiting using Redis.
// Without Redis it falls back to an in-process token bucket per key, so
// a single instance is still throttled.
// ⭐ SSOT: rate limiting lives here only
type RateLimiter struct {
	client *Client
	prefix string
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*rate.Limiter
	seq   uint64
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "reload")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// ReloadRateLimit builds the limit applied to cache reloads
func ReloadRateLimit(cfg *config.Config) RateLimitConfig {
	return RateLimitConfig{
		Key:    "reload",
		Limit:  cfg.Reload.Limit,
		Window: cfg.Reload.Window,
	}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		now:    time.Now,
		local:  make(map[string]*rate.Limiter),
	}
}

// Allow checks if a request is allowed under the rate limit
// Returns (allowed, remaining, error)
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		return false, 0, fmt.Errorf("invalid rate limit %q: limit and window must be positive", cfg.Key)
	}

	if r.client == nil || !r.client.Enabled() {
		return r.allowLocal(cfg)
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := r.now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	r.mu.Lock()
	r.seq++
	member := fmt.Sprintf("%d-%d", now, r.seq)
	r.mu.Unlock()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
		member,
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("rate limit script returned %d values", len(result))
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("rate limit script returned %T for allowed", result[0])
	}
	remaining, ok := result[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("rate limit script returned %T for remaining", result[1])
	}

	return allowed == 1, int(remaining), nil
}

func (r *RateLimiter) allowLocal(cfg RateLimitConfig) (bool, int, error) {
	r.mu.Lock()
	lim, ok := r.local[cfg.Key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(cfg.Window/time.Duration(cfg.Limit)), cfg.Limit)
		r.local[cfg.Key] = lim
	}
	r.mu.Unlock()

	now := r.now()
	if !lim.AllowN(now, 1) {
		return false, 0, nil
	}
	remaining := int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, nil
}
