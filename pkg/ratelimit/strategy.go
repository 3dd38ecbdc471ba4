package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const DefaultKeyPrefix = "ratelimit:"

type Logger interface {
	Error(msg string, args ...interface{})
}

// Decision is the outcome of one Check.
type Decision struct {
	Limited bool
	// Remaining is the number of requests still allowed in the current window.
	Remaining int
	// RetryAfter is how long a limited client should wait. Zero when allowed.
	RetryAfter time.Duration
}

// RateLimiter counts requests per key.
type RateLimiter interface {
	Limits() (requests int, window time.Duration)
	Check(ctx context.Context, key string) (Decision, error)
	Close() error
}

// InMemoryRateLimiter is a token bucket per key, for a single instance.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	checks   uint64
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sweepEvery is how many checks pass between evictions of idle keys.
const sweepEvery = 1024

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		limiters: make(map[string]*keyedLimiter),
	}
}

func (r *InMemoryRateLimiter) Limits() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) Check(_ context.Context, key string) (Decision, error) {
	if key == "" {
		key = "__empty__"
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.limiters[key]
	if !ok {
		every := rate.Limit(float64(r.requests) / r.window.Seconds())
		k = &keyedLimiter{limiter: rate.NewLimiter(every, r.requests)}
		r.limiters[key] = k
	}
	k.lastSeen = now

	r.checks++
	if r.checks%sweepEvery == 0 {
		r.sweep(now.Add(-2 * r.window))
	}

	if k.limiter.AllowN(now, 1) {
		return Decision{Remaining: int(math.Floor(k.limiter.TokensAt(now)))}, nil
	}

	reservation := k.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	return Decision{Limited: true, RetryAfter: delay}, nil
}

func (r *InMemoryRateLimiter) sweep(cutoff time.Time) {
	for key, k := range r.limiters {
		if k.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
		}
	}
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

// slidingWindow keeps one sorted-set member per accepted request, scored in
// milliseconds. It answers {limited, remaining, retry_after_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry = window
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	return {1, 0, retry}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window * 2)

return {0, limit - count - 1, 0}
`)

// RedisRateLimiter is a sliding window shared by every instance.
type RedisRateLimiter struct {
	client    *redis.Client
	requests  int
	window    time.Duration
	keyPrefix string
	logger    Logger
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, logger Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		requests:  requests,
		window:    window,
		keyPrefix: DefaultKeyPrefix,
		logger:    logger,
	}
}

func (r *RedisRateLimiter) Limits() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisRateLimiter) Check(ctx context.Context, key string) (Decision, error) {
	fullKey := key
	if r.keyPrefix != "" && !strings.HasPrefix(key, r.keyPrefix) {
		fullKey = r.keyPrefix + key
	}

	reply, err := slidingWindow.Run(ctx, r.client, []string{fullKey},
		time.Now().UnixMilli(),
		r.window.Milliseconds(),
		r.requests,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script execution failed", "key", fullKey, "error", err)
		}
		return Decision{}, fmt.Errorf("ratelimit/redis: %w", err)
	}
	if len(reply) != 3 {
		return Decision{}, fmt.Errorf("ratelimit/redis: unexpected reply length %d", len(reply))
	}

	return Decision{
		Limited:    reply[0] == 1,
		Remaining:  int(reply[1]),
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

// Close is a no-op: the client belongs to the application cache.
func (r *RedisRateLimiter) Close() error {
	return nil
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Redis selects the sliding window backend when set.
	Redis  *redis.Client
	Logger Logger
}

func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		return NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Logger)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}
