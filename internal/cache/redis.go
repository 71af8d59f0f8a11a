package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage is an alternative backend for deployments that already run
// Redis. Expiry is delegated to Redis itself (SET with TTL), so Read reports
// the current time as the stored-at timestamp: any entry Redis still holds
// is by definition unexpired.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	clock  Clock
}

func NewRedisStorage(redisURL string, ttl time.Duration) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStorage{client: client, ttl: ttl, clock: realClock{}}, nil
}

func (r *RedisStorage) Read(key string) ([]byte, time.Time, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, "ctx_cache:"+key).Bytes()
	if err != nil {
		return nil, time.Time{}, ErrNotFound
	}
	return data, r.clock.Now(), nil
}

func (r *RedisStorage) Write(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return r.client.Set(ctx, "ctx_cache:"+key, data, r.ttl).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
