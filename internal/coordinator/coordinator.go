// Package coordinator serializes mutating operations per market and per user.
//
// Callers always take the market lock before the user lock and take both
// before opening a database transaction.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Coordinator struct {
	markets Locker
	users   Locker
	wait    time.Duration
}

// New builds a coordinator over the given lockers. A zero wait means callers
// block until their context ends.
func New(markets, users Locker, wait time.Duration) *Coordinator {
	return &Coordinator{markets: markets, users: users, wait: wait}
}

// NewLocal returns a coordinator backed by in-process keyed mutexes.
func NewLocal() *Coordinator {
	return New(NewKeyedMutex(), NewKeyedMutex(), 0)
}

func (c *Coordinator) LockMarket(ctx context.Context, marketID uuid.UUID) (func(), error) {
	return c.acquire(ctx, c.markets, "market:"+marketID.String())
}

func (c *Coordinator) LockUser(ctx context.Context, userID uuid.UUID) (func(), error) {
	return c.acquire(ctx, c.users, "user:"+userID.String())
}

// LockMarketUser takes the market lock, then the user lock.
func (c *Coordinator) LockMarketUser(ctx context.Context, marketID, userID uuid.UUID) (func(), error) {
	unlockMarket, err := c.LockMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	unlockUser, err := c.LockUser(ctx, userID)
	if err != nil {
		unlockMarket()
		return nil, err
	}
	return func() {
		unlockUser()
		unlockMarket()
	}, nil
}

func (c *Coordinator) acquire(ctx context.Context, l Locker, key string) (func(), error) {
	if c.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.wait)
		defer cancel()
	}
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	return unlock, nil
}
