package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prices map[string]float64

func TestNewSelectsBackend(t *testing.T) {
	c, err := New[string](Options{})
	require.NoError(t, err)
	m, ok := c.(*MemoryCache[string])
	require.True(t, ok, "expected *MemoryCache[string]")
	m.Stop()

	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	c, err = New[string](Options{Backend: RedisBackend, Redis: &RedisOptions{Addr: s.Addr()}})
	require.NoError(t, err)
	r, ok := c.(*RedisCache[string])
	require.True(t, ok, "expected *RedisCache[string]")
	assert.NoError(t, r.Close())

	_, err = New[string](Options{Backend: RedisBackend})
	assert.Error(t, err)

	_, err = New[string](Options{Backend: "memcached"})
	assert.Error(t, err)
}

func TestMemoryCache(t *testing.T) {
	mc := NewMemoryCache[prices](4, 10*time.Millisecond)
	defer mc.Stop()
	ctx := context.Background()

	assert.NoError(t, mc.Set(ctx, "m1", prices{"yes": 0.5, "no": 0.5}, 0))
	v, err := mc.Get(ctx, "m1")
	assert.NoError(t, err)
	assert.Equal(t, 0.5, v["yes"])

	_, err = mc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, mc.Set(ctx, "temp", prices{}, 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err = mc.Get(ctx, "temp")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.Eventually(t, func() bool { return mc.Len() == 1 }, time.Second, 10*time.Millisecond,
		"janitor evicts expired entries")

	assert.NoError(t, mc.Delete(ctx, "m1"))
	_, err = mc.Get(ctx, "m1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	mc.Stop()
	mc.Stop()
}

func TestMemoryCacheConcurrent(t *testing.T) {
	mc := NewMemoryCache[int](0, 0)
	defer mc.Stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			_ = mc.Set(ctx, key, i, time.Minute)
			_, _ = mc.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, mc.Len())
}

func TestRedisCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	rc := NewRedisCache[prices](&RedisOptions{
		Addr:      s.Addr(),
		PoolSize:  5,
		OpTimeout: 100 * time.Millisecond,
		KeyPrefix: "mc:",
	})
	defer rc.Close()
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "m1", prices{"a": 0.25}, time.Minute))
	assert.True(t, s.Exists("mc:m1"))
	assert.Equal(t, time.Minute, s.TTL("mc:m1"))

	v, err := rc.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, prices{"a": 0.25}, v)

	require.NoError(t, rc.Set(ctx, "forever", prices{}, 0))
	assert.Equal(t, time.Duration(0), s.TTL("mc:forever"))

	s.FastForward(2 * time.Minute)
	_, err = rc.Get(ctx, "m1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, rc.Delete(ctx, "forever"))
	assert.False(t, s.Exists("mc:forever"))

	require.NoError(t, s.Set("mc:garbage", "{not json"))
	_, err = rc.Get(ctx, "garbage")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := NewRedisClient(&RedisOptions{Addr: s.Addr(), MaxRetries: -1})
	rc := NewRedisCacheWithClient[int](client, 0, "")
	s.Close()

	_, err = rc.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, rc.Close(), "shared clients are not closed by the cache")
	_ = client.Close()
}

func TestAddOnlyFillsAbsentKeys(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	mc := NewMemoryCache[prices](0, 0)
	defer mc.Stop()
	rc := NewRedisCache[prices](&RedisOptions{Addr: s.Addr(), KeyPrefix: "mc:"})
	defer rc.Close()

	backends := map[string]Cache[prices]{"memory": mc, "redis": rc}
	for name, c := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			added, err := c.Add(ctx, "fresh", prices{"yes": 0.6}, time.Minute)
			require.NoError(t, err)
			assert.True(t, added)

			require.NoError(t, c.Set(ctx, "committed", prices{"yes": 0.73}, time.Minute))
			added, err = c.Add(ctx, "committed", prices{"yes": 0.5}, time.Minute)
			require.NoError(t, err)
			assert.False(t, added)

			v, err := c.Get(ctx, "committed")
			require.NoError(t, err)
			assert.Equal(t, 0.73, v["yes"])
		})
	}
}

func TestMemoryCacheAddReplacesExpired(t *testing.T) {
	mc := NewMemoryCache[prices](0, time.Hour)
	defer mc.Stop()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", prices{"yes": 0.1}, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	added, err := mc.Add(ctx, "k", prices{"yes": 0.2}, 0)
	require.NoError(t, err)
	assert.True(t, added)
	v, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 0.2, v["yes"])
}
