package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names a change notification.
type Kind string

const (
	KindBetPlaced       Kind = "bet.placed"
	KindBetCancelled    Kind = "bet.cancelled"
	KindPriceChanged    Kind = "market.price_changed"
	KindMarketClosed    Kind = "market.closed"
	KindMarketResolved  Kind = "market.resolved"
	KindMarketCancelled Kind = "market.cancelled"
	KindBalanceChanged  Kind = "balance.changed"
)

// Event is a best-effort notification for real-time fan-out.
type Event struct {
	Kind       Kind        `json:"kind"`
	MarketID   uuid.UUID   `json:"market_id"`
	UserID     uuid.UUID   `json:"user_id"`
	BetID      uuid.UUID   `json:"bet_id"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(e Event)
}

// Sink delivers events to one destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, e Event) error
}

type discard struct{}

// Discard drops every event.
var Discard Emitter = discard{}

func (discard) Emit(Event) {}
