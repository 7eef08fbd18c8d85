package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"trip-console/internal/platform/obs"

	"github.com/redis/go-redis/v9"
)

// RedisResponseCache stores encoded planner responses in Redis with a TTL.
type RedisResponseCache struct {
	Client redis.UniversalClient
}

func NewRedisResponseCache(client redis.UniversalClient) *RedisResponseCache {
	return &RedisResponseCache{Client: client}
}

// Fetch one cached response. A missing key is a miss, not an error.
func (r *RedisResponseCache) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "response.cache.redis.Get")(&err)

	if r.Client == nil {
		return nil, false, errors.New("response cache: redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get response cache: key must not be empty")
	}

	body, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get response cache key=%q: %w", key, err)
	}

	return body, true, nil
}

// Store one response. A zero ttl keeps the entry until evicted.
func (r *RedisResponseCache) Put(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if r.Client == nil {
		return errors.New("response cache: redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("put response cache: key must not be empty")
	}

	if err := r.Client.Set(ctx, key, body, ttl).Err(); err != nil {
		return fmt.Errorf("put response cache key=%q: %w", key, err)
	}

	return nil
}
