package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions holds client tuning and operation-level settings.
type RedisOptions struct {
	Addr            string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	OpTimeout       time.Duration // per call, defaulted if zero
	KeyPrefix       string
}

// NewRedisClient builds a go-redis client from the options.
func NewRedisClient(opts *RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            opts.Addr,
		Password:        opts.Password,
		DB:              opts.DB,
		PoolSize:        opts.PoolSize,
		MinIdleConns:    opts.MinIdleConns,
		MaxRetries:      opts.MaxRetries,
		MinRetryBackoff: opts.MinRetryBackoff,
		MaxRetryBackoff: opts.MaxRetryBackoff,
	})
}

// RedisCache stores JSON encoded values in redis.
type RedisCache[V any] struct {
	client    *redis.Client
	opTimeout time.Duration
	prefix    string
	owned     bool
}

var _ Cache[int] = (*RedisCache[int])(nil)

// NewRedisCache dials its own client.
func NewRedisCache[V any](opts *RedisOptions) *RedisCache[V] {
	c := NewRedisCacheWithClient[V](NewRedisClient(opts), opts.OpTimeout, opts.KeyPrefix)
	c.owned = true
	return c
}

// NewRedisCacheWithClient shares an existing client.
func NewRedisCacheWithClient[V any](client *redis.Client, opTimeout time.Duration, prefix string) *RedisCache[V] {
	if opTimeout <= 0 {
		opTimeout = 50 * time.Millisecond
	}
	return &RedisCache[V]{client: client, opTimeout: opTimeout, prefix: prefix}
}

// Close releases the client when this cache created it.
func (r *RedisCache[V]) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

func (r *RedisCache[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, ErrCacheMiss
	}
	if err != nil {
		return zero, err
	}
	var val V
	if err := json.Unmarshal(data, &val); err != nil {
		return zero, err
	}
	return val, nil
}

func (r *RedisCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}

func (r *RedisCache[V]) Add(ctx context.Context, key string, value V, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	if ttl < 0 {
		ttl = 0
	}
	return r.client.SetNX(ctx, r.prefix+key, data, ttl).Result()
}

func (r *RedisCache[V]) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.client.Del(ctx, r.prefix+key).Err()
}
