package markets

import (
	"time"

	"github.com/joefazee/marketcore/models"
)

// Config represents the configuration for the markets module
type Config struct {
	DefaultLiquidity    float64       `env:"MARKET_DEFAULT_LIQUIDITY" env-default:"100"`
	MinMarketDuration   time.Duration `env:"MARKET_MIN_DURATION" env-default:"1h"`
	MaxMarketDuration   time.Duration `env:"MARKET_MAX_DURATION" env-default:"8760h"`
	ExpirySweepInterval time.Duration `env:"MARKET_EXPIRY_SWEEP_INTERVAL" env-default:"30s"`
	PriceCacheTTL       time.Duration `env:"MARKET_PRICE_CACHE_TTL" env-default:"30s"`
}

// Validate validates the market configuration
func (c *Config) Validate() error {
	if c.DefaultLiquidity <= 0 {
		return models.ErrInvalidDefaultLiquidity
	}

	if c.MinMarketDuration < 0 || c.MaxMarketDuration <= c.MinMarketDuration {
		return models.ErrInvalidMarketDuration
	}

	if c.ExpirySweepInterval <= 0 {
		return models.ErrInvalidSweepInterval
	}

	if c.PriceCacheTTL < 0 {
		return models.ErrInvalidPriceCacheTTL
	}

	return nil
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{
		DefaultLiquidity:    100,
		MinMarketDuration:   time.Hour,
		MaxMarketDuration:   365 * 24 * time.Hour,
		ExpirySweepInterval: 30 * time.Second,
		PriceCacheTTL:       30 * time.Second,
	}
}
