package cachekv

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is the networked KV variant. Envelopes (already serialized
// to JSON by the caller) are stored as plain Redis values with a TTL.
// Every operation fails soft: a transport error on Get is reported as a
// miss, and Set/Delete transport errors are logged and otherwise ignored
// so a flaky cache backend never surfaces to the request path.
type RedisBackend struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBackend wraps an already-connected Redis client.
func NewRedisBackend(client *redis.Client, logger *slog.Logger) *RedisBackend {
	return &RedisBackend{client: client, logger: logger}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		b.logger.Warn("cachekv: redis get failed, treating as miss", "key", key, "error", err)
		return nil, false, nil
	}
	return val, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttlSeconds int64) error {
	ttl := time.Duration(ttlSeconds) * time.Second
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		b.logger.Warn("cachekv: redis set failed, dropping write", "key", key, "error", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		b.logger.Warn("cachekv: redis delete failed", "key", key, "error", err)
	}
	return nil
}

// Evictions is always 0: Redis manages its own memory policy, and this
// backend doesn't impose an additional entry-count bound.
func (b *RedisBackend) Evictions() int64 { return 0 }

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
