package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// Cache stores finished classifications keyed by description digest.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Classification, bool, error)
	Set(ctx context.Context, key string, value domain.Classification, ttl time.Duration) error
}

const cacheKeyPrefix = "classify:"

func cacheKey(description string) string {
	sum := sha256.Sum256([]byte(description))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// RedisCache keeps classifications in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a go-redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.Classification, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Classification{}, false, nil
	}
	if err != nil {
		return domain.Classification{}, false, err
	}
	var value domain.Classification
	if err := json.Unmarshal(raw, &value); err != nil {
		return domain.Classification{}, false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value domain.Classification, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}
