package redisclient

import (
	"context"
	"fmt"
	"time"

	"neutral-reader/internal/config"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client from configuration without connecting.
func New(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 3 * time.Second,
	})
}

// Open creates a client and checks the server answers within timeout.
func Open(ctx context.Context, cfg config.RedisConfig, timeout time.Duration) (*redis.Client, error) {
	rdb := New(cfg)
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
