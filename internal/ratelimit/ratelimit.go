// Package ratelimit implements a fixed-window request counter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"invite-exchange/internal/config"
)

const keyPrefix = "ratelimit:"

// Limiter counts requests per key in fixed windows
type Limiter struct {
	rdb *goredis.Client
	log *zap.Logger
}

// NewLimiter connects to Redis. It returns (nil, nil) when no address is
// configured, which callers treat as "rate limiting disabled".
func NewLimiter(cfg *config.RedisConfig, log *zap.Logger) (*Limiter, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connection established", zap.String("addr", cfg.Addr))

	return &Limiter{rdb: rdb, log: log}, nil
}

// Allow records one request for key and reports whether it fits in the
// current window of length window
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	windowKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, time.Now().UnixNano()/int64(window))

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

// Close closes the Redis connection
func (l *Limiter) Close() error {
	return l.rdb.Close()
}
