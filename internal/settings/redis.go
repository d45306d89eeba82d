package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pebfutar.app/internal/logging"
)

// RedisStore keeps settings under a key prefix in Redis, for riders who want
// their favorites shared between devices.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logging.SafeCloseWithLogging(client, logger, "redis client")
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisStoreWithClient(client, logger), nil
}

// NewRedisStoreWithClient wraps an existing client without pinging it.
func NewRedisStoreWithClient(client *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RedisStore{client: client, prefix: "futar:settings:", logger: logger.With(slog.String("component", "settings_redis"))}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) ReadString(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("setting missing", slog.String("key", key))
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisStore) WriteString(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	r.logger.Debug("setting written", slog.String("key", key), slog.Int("size_bytes", len(value)))
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
