package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses url and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Redis is a fixed window limiter shared by every API replica.
type Redis struct {
	rdb     redis.Cmdable
	prefix  string
	maxReqs int
	window  time.Duration
}

func NewRedis(rdb redis.Cmdable, prefix string, maxRequests int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, maxReqs: maxRequests, window: window}
}

func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	slot := time.Now().UnixNano() / int64(l.window)
	k := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("rate limit %s: %w", k, err)
	}
	return incr.Val() <= int64(l.maxReqs), nil
}
