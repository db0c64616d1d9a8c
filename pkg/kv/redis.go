package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/beat22/storefront-core/pkg/redis"
)

// Redis persists records through the shared redis client under namespaced
// state keys. Records never expire; the core owns their lifecycle.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps the provided client.
func NewRedis(client *redis.Client) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.client.StateKey(key))
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (r *Redis) Save(ctx context.Context, key string, blob []byte) error {
	if err := r.client.Set(ctx, r.client.StateKey(key), string(blob), 0); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
