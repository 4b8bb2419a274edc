package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLua deletes the key only while it still holds the caller's token.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// refreshLua extends the key only while it still holds the caller's token.
const refreshLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

// RedisLockOptions tunes the distributed lock.
type RedisLockOptions struct {
	Prefix        string
	TTL           time.Duration
	RetryInterval time.Duration
	// RefreshInterval re-arms the TTL while the lock is held. Defaults to TTL/3.
	RefreshInterval time.Duration
}

// RedisLocker is a SETNX lock shared by every API instance using the same redis.
type RedisLocker struct {
	client  *redis.Client
	opts    RedisLockOptions
	release *redis.Script
	refresh *redis.Script
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client, opts RedisLockOptions) *RedisLocker {
	if opts.Prefix == "" {
		opts.Prefix = "lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 10 * time.Millisecond
	}
	if opts.RefreshInterval <= 0 || opts.RefreshInterval >= opts.TTL {
		opts.RefreshInterval = opts.TTL / 3
	}
	return &RedisLocker{
		client:  client,
		opts:    opts,
		release: redis.NewScript(releaseLua),
		refresh: redis.NewScript(refreshLua),
	}
}

// Lock polls SETNX until it wins or ctx is done. While held, the TTL is
// renewed every RefreshInterval; if the process dies without unlocking, the
// lock expires after TTL.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	k := l.opts.Prefix + key

	ticker := time.NewTicker(l.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	done := make(chan struct{})
	go l.keepAlive(k, token, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			// the caller's ctx may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.release.Run(releaseCtx, l.client, []string{k}, token).Err()
		})
	}, nil
}

func (l *RedisLocker) keepAlive(key, token string, done <-chan struct{}) {
	ticker := time.NewTicker(l.opts.RefreshInterval)
	defer ticker.Stop()

	ttl := l.opts.TTL.Milliseconds()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.opts.RefreshInterval)
			n, err := l.refresh.Run(ctx, l.client, []string{key}, token, ttl).Int()
			cancel()
			if err == nil && n == 0 {
				// lost to expiry or another holder
				return
			}
		}
	}
}
