package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	RedisBackend  = "redis"
	MemoryBackend = "memory"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a TTL key/value store for values of type V.
type Cache[V any] interface {
	// Get returns the value or ErrCacheMiss.
	Get(ctx context.Context, key string) (V, error)
	// Set stores value under key. Zero ttl means no expiration.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Add stores value only when key is absent or expired and reports
	// whether it did.
	Add(ctx context.Context, key string, value V, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Options selects and tunes a backend.
type Options struct {
	Backend string
	Redis   *RedisOptions
	Shards  int
	Janitor time.Duration
}

// New builds the cache described by opts.
func New[V any](opts Options) (Cache[V], error) {
	switch opts.Backend {
	case "", MemoryBackend:
		return NewMemoryCache[V](opts.Shards, opts.Janitor), nil
	case RedisBackend:
		if opts.Redis == nil {
			return nil, errors.New("cache: redis backend requires redis options")
		}
		return NewRedisCache[V](opts.Redis), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
	}
}
