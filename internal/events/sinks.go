package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joefazee/marketcore/internal/logger"
)

// RedisSink publishes events as JSON on redis pub/sub. Market events go to
// "<prefix>:market:<id>", the rest to "<prefix>:user:<id>".
type RedisSink struct {
	client *redis.Client
	prefix string
}

func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "marketcore:events"
	}
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) Name() string { return "redis" }

// Channel returns the pub/sub channel an event is published on.
func (s *RedisSink) Channel(e Event) string {
	if e.MarketID != uuid.Nil {
		return fmt.Sprintf("%s:market:%s", s.prefix, e.MarketID)
	}
	return fmt.Sprintf("%s:user:%s", s.prefix, e.UserID)
}

func (s *RedisSink) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.Kind, err)
	}
	channel := s.Channel(e)
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// LogSink writes events to the application log.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(_ context.Context, e Event) error {
	s.log.Debug("event", map[string]interface{}{
		"kind":      string(e.Kind),
		"market_id": e.MarketID.String(),
		"user_id":   e.UserID.String(),
		"bet_id":    e.BetID.String(),
	})
	return nil
}

// Hub fans events out to in-process subscribers. Slow subscribers miss events.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

func (h *Hub) Name() string { return "hub" }

func (h *Hub) Publish(_ context.Context, e Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Emit lets the hub be used directly as an Emitter.
func (h *Hub) Emit(e Event) {
	_ = h.Publish(context.Background(), e)
}

// Subscribe registers a subscriber; cancel removes it and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}
