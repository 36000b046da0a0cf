package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "fsmkit:checkpoint"

// RedisOption configures the Redis store.
type RedisOption func(*Redis)

// WithKey overrides the checkpoint key, allowing several machines to share
// one Redis instance.
func WithKey(key string) RedisOption {
	return func(r *Redis) {
		if key != "" {
			r.key = key
		}
	}
}

// WithTTL expires the checkpoint after the given duration. Zero means no
// expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// Redis stores the checkpoint under a single key, surviving process restarts
// as long as the Redis instance does.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis returns a store using the provided client. The client's lifecycle
// stays with the caller.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		key:    defaultRedisKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Save(ctx context.Context, state string) error {
	if err := r.client.Set(ctx, r.key, state, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	state, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoCheckpoint
		}
		return "", fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}
	if state == "" {
		return "", ErrNoCheckpoint
	}
	return state, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to clear checkpoint in redis: %w", err)
	}
	return nil
}
