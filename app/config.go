package app

import (
	"context"
	"time"

	"github.com/joefazee/marketcore/app/database"
	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/app/prediction"
	"github.com/joefazee/marketcore/internal/nexus"
)

type Config struct {
	DB         database.Config
	Redis      RedisConfig
	Markets    markets.Config
	Prediction prediction.Config

	AppHost  string `env:"APP_HOST" env-default:"localhost"`
	AppPort  string `env:"APP_PORT" env-default:"8080"`
	Env      string `env:"APP_ENV" env-default:"development" validate:"oneof=development staging production test"`
	Version  string `env:"APP_VERSION" env-default:"dev"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:","`

	// TokenSymmetricKey must be exactly 32 characters for paseto v2.
	TokenSymmetricKey string `env:"TOKEN_SYMMETRIC_KEY"`

	EventBuffer     int           `env:"EVENT_BUFFER" env-default:"1024" validate:"min=1"`
	LockWait        time.Duration `env:"LOCK_WAIT" env-default:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// RedisConfig is optional; an empty address keeps every component in process.
type RedisConfig struct {
	Addr      string        `env:"REDIS_ADDR"`
	Password  string        `env:"REDIS_PASSWORD"`
	DB        int           `env:"REDIS_DB" env-default:"0"`
	PoolSize  int           `env:"REDIS_POOL_SIZE" env-default:"10"`
	KeyPrefix string        `env:"REDIS_KEY_PREFIX" env-default:"marketcore"`
	LockTTL   time.Duration `env:"REDIS_LOCK_TTL" env-default:"30s"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.AppPort
}

// Validate runs the module level checks nexus does not know about.
func (c *Config) Validate() error {
	if err := c.Markets.Validate(); err != nil {
		return err
	}
	return c.Prediction.Validate()
}

// LoadConfig loads the application configuration from environment variables or a config file.
func LoadConfig(ctx context.Context, opts ...nexus.LoaderOption) (*Config, error) {
	c := &Config{}
	if err := nexus.NewLoader(opts...).Load(ctx, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
