package database

import (
	"context"
	"fmt"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis sets up the Redis client and tests the connection.
// An empty address returns nil, nil so callers can run without Redis.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		log.Warn("REDIS", "REDIS_ADDR is empty, running without cache, locks or token revocation")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection error at %s: %w", cfg.Addr, err)
	}

	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, client.Options().DB))
	return client, nil
}
