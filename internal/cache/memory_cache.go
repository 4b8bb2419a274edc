package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type shard[V any] struct {
	sync.RWMutex
	items map[string]entry[V]
}

// MemoryCache is a sharded in-process cache with a background janitor.
type MemoryCache[V any] struct {
	shards []*shard[V]
	stop   chan struct{}
	once   sync.Once
}

var _ Cache[int] = (*MemoryCache[int])(nil)

// NewMemoryCache creates the cache; non-positive arguments fall back to
// 64 shards and a one second janitor.
func NewMemoryCache[V any](shards int, janitor time.Duration) *MemoryCache[V] {
	if shards <= 0 {
		shards = 64
	}
	if janitor <= 0 {
		janitor = time.Second
	}
	mc := &MemoryCache[V]{
		shards: make([]*shard[V], shards),
		stop:   make(chan struct{}),
	}
	for i := range mc.shards {
		mc.shards[i] = &shard[V]{items: make(map[string]entry[V])}
	}
	go mc.janitor(janitor)
	return mc
}

// Stop terminates the janitor goroutine.
func (mc *MemoryCache[V]) Stop() {
	mc.once.Do(func() { close(mc.stop) })
}

func (mc *MemoryCache[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return mc.shards[h.Sum32()%uint32(len(mc.shards))]
}

func (mc *MemoryCache[V]) Get(_ context.Context, key string) (V, error) {
	var zero V
	s := mc.shardFor(key)

	s.RLock()
	e, ok := s.items[key]
	s.RUnlock()

	if !ok || e.expired(time.Now()) {
		return zero, ErrCacheMiss
	}
	return e.value, nil
}

func (mc *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s := mc.shardFor(key)
	s.Lock()
	s.items[key] = e
	s.Unlock()
	return nil
}

func (mc *MemoryCache[V]) Add(_ context.Context, key string, value V, ttl time.Duration) (bool, error) {
	now := time.Now()
	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s := mc.shardFor(key)
	s.Lock()
	defer s.Unlock()
	if cur, ok := s.items[key]; ok && !cur.expired(now) {
		return false, nil
	}
	s.items[key] = e
	return true, nil
}

func (mc *MemoryCache[V]) Delete(_ context.Context, key string) error {
	s := mc.shardFor(key)
	s.Lock()
	delete(s.items, key)
	s.Unlock()
	return nil
}

// Len counts stored entries, expired ones included until the janitor runs.
func (mc *MemoryCache[V]) Len() int {
	n := 0
	for _, s := range mc.shards {
		s.RLock()
		n += len(s.items)
		s.RUnlock()
	}
	return n
}

func (mc *MemoryCache[V]) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mc.evictExpired(time.Now())
		case <-mc.stop:
			return
		}
	}
}

func (mc *MemoryCache[V]) evictExpired(now time.Time) {
	for _, s := range mc.shards {
		s.Lock()
		for k, e := range s.items {
			if e.expired(now) {
				delete(s.items, k)
			}
		}
		s.Unlock()
	}
}
