package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-events/internal/models"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	pageKeyPrefix  = "catalog:page:"
	eventKeyPrefix = "catalog:event:"
)

// RedisCache stores catalog pages and events as JSON with a TTL.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		Client: client,
		TTL:    ttl,
	}
}

func PageKey(limit, skip int) string {
	return fmt.Sprintf("%s%d:%d", pageKeyPrefix, limit, skip)
}

func EventKey(id int) string {
	return fmt.Sprintf("%s%d", eventKeyPrefix, id)
}

// GetPage returns nil, nil on a miss.
func (c *RedisCache) GetPage(ctx context.Context, limit, skip int) (*models.EventPage, error) {
	var page models.EventPage
	ok, err := c.get(ctx, PageKey(limit, skip), &page)
	if err != nil || !ok {
		return nil, err
	}
	return &page, nil
}

func (c *RedisCache) SetPage(ctx context.Context, limit, skip int, page *models.EventPage) error {
	return c.set(ctx, PageKey(limit, skip), page)
}

// GetEvent returns nil, nil on a miss.
func (c *RedisCache) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	var event models.Event
	ok, err := c.get(ctx, EventKey(id), &event)
	if err != nil || !ok {
		return nil, err
	}
	return &event, nil
}

func (c *RedisCache) SetEvent(ctx context.Context, event *models.Event) error {
	return c.set(ctx, EventKey(event.ID), event)
}

func (c *RedisCache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	if c.Client == nil {
		return false, fmt.Errorf("redis client not initialized")
	}

	raw, err := c.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to read %s from redis: %w", key, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value interface{}) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := c.Client.Set(ctx, key, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store %s in redis: %w", key, err)
	}
	return nil
}
