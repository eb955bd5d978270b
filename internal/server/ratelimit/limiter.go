// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/redis/go-redis/v9"
)

// Limiter allows at most Limit hits per key within each Window.
type Limiter struct {
	redis  redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

func NewLimiter(r redis.Cmdable, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{redis: r, prefix: prefix, limit: limit, window: window}
}

// Allow records one hit for key. It returns common.ErrRateLimited once the
// window's budget is spent, or a plain error when Redis is unreachable.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	if count > int64(l.limit) {
		return common.ErrRateLimited
	}
	return nil
}

// NewClient opens a Redis client for addr and verifies it with PING.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
