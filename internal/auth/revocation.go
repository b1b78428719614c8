package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// RevokedKeyPrefix prefixes the Redis keys of revoked token ids.
	RevokedKeyPrefix = "auth:revoked:"
	// RevocationBuffer keeps a revocation around a little past expiry for clock skew.
	RevocationBuffer = 60 * time.Second
)

type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationList remembers logged out tokens until they would have expired anyway.
type RedisRevocationList struct {
	Client *redis.Client
	now    func() time.Time
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{
		Client: client,
		now:    time.Now,
	}
}

func revokedKey(tokenID string) string {
	return RevokedKeyPrefix + tokenID
}

func (c *RedisRevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	if tokenID == "" {
		return nil
	}

	ttl := expiresAt.Sub(c.now()) + RevocationBuffer
	if ttl <= RevocationBuffer {
		// Already expired, nothing to remember.
		return nil
	}

	if err := c.Client.Set(ctx, revokedKey(tokenID), expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation in Redis: %w", err)
	}
	return nil
}

func (c *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if c.Client == nil {
		return false, fmt.Errorf("redis client not initialized")
	}
	if tokenID == "" {
		return false, nil
	}

	n, err := c.Client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation in Redis: %w", err)
	}
	return n > 0, nil
}
