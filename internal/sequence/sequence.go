// Package sequence provides atomic document-number counters.
//
// Stores keep their own counter (a SQLite counter row or a PostgreSQL
// sequence) and only consult a Sequence when one is configured, which lets
// several independent deployments share a single Redis-backed ordinal space.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"docflow/internal/config"
	"docflow/internal/logging"
)

// Sequence hands out strictly increasing ordinals. Implementations must be
// safe for concurrent use across processes.
type Sequence interface {
	Next(ctx context.Context) (int64, error)
}

// Func adapts a plain function to Sequence.
type Func func(ctx context.Context) (int64, error)

// Next calls f.
func (f Func) Next(ctx context.Context) (int64, error) { return f(ctx) }

// Redis increments a single key with INCR.
type Redis struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, key string, logger *slog.Logger) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis sequence: client is required")
	}
	if key == "" {
		return nil, errors.New("redis sequence: key is required")
	}
	return &Redis{client: client, key: key, logger: logging.NewComponentLogger(logger, "sequence")}, nil
}

// OpenRedis dials the configured Redis server and verifies connectivity.
func OpenRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Redis, error) {
	if cfg == nil {
		return nil, errors.New("redis sequence: config is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Numbering.RedisAddr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis sequence: ping %s: %w", cfg.Numbering.RedisAddr, err)
	}
	seq, err := NewRedis(client, cfg.Numbering.RedisKey, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	seq.logger.Info("redis numbering enabled",
		logging.String("addr", cfg.Numbering.RedisAddr),
		logging.String("key", cfg.Numbering.RedisKey),
	)
	return seq, nil
}

// Next returns the incremented counter value.
func (r *Redis) Next(ctx context.Context) (int64, error) {
	n, err := r.client.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis sequence: incr %s: %w", r.key, err)
	}
	return n, nil
}

// Current returns the last issued value without advancing it.
func (r *Redis) Current(ctx context.Context) (int64, error) {
	n, err := r.client.Get(ctx, r.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis sequence: get %s: %w", r.key, err)
	}
	return n, nil
}

// Close releases the client connection pool.
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
