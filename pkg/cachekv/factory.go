package cachekv

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewBackend builds the KV backend for the cache façade. When redisURL is
// empty it returns an in-process backend directly. When a URL is given it
// tries to connect; on any failure to parse the URL or reach the server it
// logs a warning and transparently degrades to the in-process backend
// instead of failing startup — the networked variant is an optimization,
// never a hard dependency.
func NewBackend(ctx context.Context, redisURL string, maxInProcessEntries int, logger *slog.Logger) Backend {
	if redisURL == "" {
		return NewInProcessBackend(maxInProcessEntries)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("cachekv: invalid redis URL, degrading to in-process backend", "error", err)
		return NewInProcessBackend(maxInProcessEntries)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("cachekv: redis unreachable, degrading to in-process backend", "error", err)
		_ = client.Close()
		return NewInProcessBackend(maxInProcessEntries)
	}

	logger.Info("cachekv: using redis backend", "addr", fmt.Sprintf("%v", opts.Addr))
	return NewRedisBackend(client, logger)
}
