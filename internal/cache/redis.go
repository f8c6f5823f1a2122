package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries as plain string keys under a common prefix.
type Redis struct {
	rc     redis.UniversalClient
	prefix string
}

// RedisConfig maps to the cache.redis section of config.yaml.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// DialRedis connects to Redis and verifies the connection with a PING.
func DialRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedis(rc, cfg.Prefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(rc redis.UniversalClient, prefix string) *Redis {
	return &Redis{rc: rc, prefix: prefix}
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.rc.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry %s: %w", key, err)
	}
	return value, nil
}

// Set implements Cache. Entries never expire.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rc.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return nil
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rc.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("deleting cache entry %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.rc.Close()
}
