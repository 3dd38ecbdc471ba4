package factory

import (
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/miniquinox/billsync/pkg/ratelimit"
)

// RateLimiterFactory builds limiters that share one backend.
type RateLimiterFactory interface {
	CreateRateLimiter(requests int, window time.Duration) ratelimit.RateLimiter
	Backend() string
}

type DefaultRateLimiterFactory struct {
	redis  *redis.Client
	logger ratelimit.Logger
}

// NewDefaultRateLimiterFactory uses Redis sliding windows when client is
// non-nil and in-memory token buckets otherwise.
func NewDefaultRateLimiterFactory(client *redis.Client, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	return &DefaultRateLimiterFactory{
		redis:  client,
		logger: logger,
	}
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter(requests int, window time.Duration) ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: requests,
		Window:   window,
		Redis:    f.redis,
		Logger:   f.logger,
	})
}

func (f *DefaultRateLimiterFactory) Backend() string {
	if f.redis != nil {
		return "redis"
	}
	return "in-memory"
}
