// Package cache keeps successful page extractions so a replayed vision stage
// only pays for pages that previously failed.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resumeflow/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisPageCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisPageCache(client *redis.Client, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{client: client, ttl: ttl, prefix: "resumeflow:page:"}
}

// Dial connects and pings, so a misconfigured address fails at startup.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*RedisPageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  addr,
		ContextTimeoutEnabled: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisPageCache(client, ttl), nil
}

func (c *RedisPageCache) Get(ctx context.Context, key string) (models.PageExtractionResult, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PageExtractionResult{}, false, nil
	}
	if err != nil {
		return models.PageExtractionResult{}, false, fmt.Errorf("get cached page: %w", err)
	}
	var res models.PageExtractionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return models.PageExtractionResult{}, false, fmt.Errorf("decode cached page: %w", err)
	}
	return res, true, nil
}

func (c *RedisPageCache) Put(ctx context.Context, key string, res models.PageExtractionResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode cached page: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached page: %w", err)
	}
	return nil
}

func (c *RedisPageCache) Close() error {
	return c.client.Close()
}
