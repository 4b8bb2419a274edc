package prediction

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/models"
)

// riskEngine implements the RiskEngine interface
type riskEngine struct {
	config *Config
	clock  clock.Clock

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

// NewRiskEngine creates a new risk engine
func NewRiskEngine(config *Config, clk clock.Clock) RiskEngine {
	return &riskEngine{
		config:   config,
		clock:    clk,
		limiters: make(map[uuid.UUID]*rate.Limiter),
	}
}

// CheckBettingLimits validates betting amount limits
func (re *riskEngine) CheckBettingLimits(amount int64) error {
	if amount < 1 {
		return models.ErrInvalidBetAmount
	}
	if amount > re.config.MaxBetAmount {
		return models.ErrBetTooLarge
	}
	return nil
}

// CheckRateLimit fails when the user's bucket is empty. It takes nothing;
// RecordBet does, once a bet is admitted.
func (re *riskEngine) CheckRateLimit(userID uuid.UUID) error {
	if re.limiter(userID).TokensAt(re.clock.Now()) < 1 {
		return models.ErrRateLimitExceeded
	}
	return nil
}

// RecordBet takes one token from the user's bucket.
func (re *riskEngine) RecordBet(userID uuid.UUID) {
	re.limiter(userID).AllowN(re.clock.Now(), 1)
}

func (re *riskEngine) limiter(userID uuid.UUID) *rate.Limiter {
	re.mu.Lock()
	defer re.mu.Unlock()

	l, ok := re.limiters[userID]
	if !ok {
		per := re.config.MaxBetsPerMinute
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(per)), per)
		re.limiters[userID] = l
	}
	return l
}

// Prune drops buckets that have refilled completely and returns how many
// remain.
func (re *riskEngine) Prune() int {
	now := re.clock.Now()
	re.mu.Lock()
	defer re.mu.Unlock()

	for id, l := range re.limiters {
		if l.TokensAt(now) >= float64(l.Burst()) {
			delete(re.limiters, id)
		}
	}
	return len(re.limiters)
}
