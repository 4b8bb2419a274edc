package prediction

import (
	"time"

	"github.com/joefazee/marketcore/models"
)

// Config represents the configuration for the betting module
type Config struct {
	MaxBetAmount          int64         `env:"MAX_BET_AMOUNT" env-default:"1000000"`
	MaxBetsPerMinute      int           `env:"MAX_BETS_PER_MINUTE" env-default:"30"`
	BetCancellationWindow time.Duration `env:"BET_CANCELLATION_WINDOW" env-default:"5m"`
	SettlementWorkers     int           `env:"SETTLEMENT_WORKERS" env-default:"8"`
	SettleBetTimeout      time.Duration `env:"SETTLE_BET_TIMEOUT" env-default:"30s"`
}

func (c *Config) Validate() error {
	type validation struct {
		ok  bool
		err error
	}

	checks := []validation{
		{c.MaxBetAmount >= 1, models.ErrInvalidBetAmountLimits},
		{c.MaxBetsPerMinute > 0 && c.MaxBetsPerMinute <= 600, models.ErrInvalidRateLimit},
		{c.BetCancellationWindow > 0, models.ErrInvalidBetCancellationWindow},
		{c.SettlementWorkers > 0 && c.SettlementWorkers <= 256, models.ErrInvalidSettlementWorkers},
		{c.SettleBetTimeout > 0, models.ErrInvalidSettleBetTimeout},
	}

	for _, v := range checks {
		if !v.ok {
			return v.err
		}
	}
	return nil
}

// GetDefaultConfig returns the default betting configuration
func GetDefaultConfig() *Config {
	return &Config{
		MaxBetAmount:          1_000_000,
		MaxBetsPerMinute:      30,
		BetCancellationWindow: 5 * time.Minute,
		SettlementWorkers:     8,
		SettleBetTimeout:      30 * time.Second,
	}
}
