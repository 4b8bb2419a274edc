package deps

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/internal/cache"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/internal/sanitizer"
	"github.com/joefazee/marketcore/internal/security"
	"github.com/joefazee/marketcore/models"
)

// Options describes the shared infrastructure. Redis is optional; without it
// locks, the price cache and events stay in process.
type Options struct {
	DB          *gorm.DB
	Redis       *redis.Client
	RedisPrefix string
	LockTTL     time.Duration
	LockWait    time.Duration
	EventBuffer int
	TokenMaker  security.Maker
	Logger      logger.Logger
	Clock       clock.Clock
}

// Container holds all shared dependencies
type Container struct {
	DB          *gorm.DB
	Redis       *redis.Client
	TokenMaker  security.Maker
	Sanitizer   sanitizer.HTMLStripperer
	Logger      logger.Logger
	Clock       clock.Clock
	Coordinator *coordinator.Coordinator
	PriceStore  cache.Cache[models.PriceVector]
	Events      *events.Dispatcher

	closers []func()
}

func NewContainer(opts Options) (*Container, error) {
	if opts.DB == nil {
		return nil, errors.New("deps: database is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNullLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	c := &Container{
		DB:         opts.DB,
		Redis:      opts.Redis,
		TokenMaker: opts.TokenMaker,
		Sanitizer:  sanitizer.NewHTMLStripper(),
		Logger:     opts.Logger,
		Clock:      opts.Clock,
	}

	sinks := []events.Sink{events.NewLogSink(opts.Logger)}

	if opts.Redis != nil {
		prefix := opts.RedisPrefix
		lockOpts := coordinator.RedisLockOptions{Prefix: prefix + ":lock:", TTL: opts.LockTTL}
		// the keyed mutex keeps same-instance waiters off the redis poll loop
		c.Coordinator = coordinator.New(
			coordinator.Chain(coordinator.NewKeyedMutex(), coordinator.NewRedisLocker(opts.Redis, lockOpts)),
			coordinator.Chain(coordinator.NewKeyedMutex(), coordinator.NewRedisLocker(opts.Redis, lockOpts)),
			opts.LockWait,
		)
		c.PriceStore = cache.NewRedisCacheWithClient[models.PriceVector](opts.Redis, 0, prefix+":cache:")
		sinks = append(sinks, events.NewRedisSink(opts.Redis, prefix))
	} else {
		c.Coordinator = coordinator.New(coordinator.NewKeyedMutex(), coordinator.NewKeyedMutex(), opts.LockWait)
		mem := cache.NewMemoryCache[models.PriceVector](0, 0)
		c.PriceStore = mem
		c.closers = append(c.closers, mem.Stop)
	}

	c.Events = events.NewDispatcher(opts.Logger, opts.EventBuffer, sinks...)
	c.closers = append(c.closers, c.Events.Close)

	return c, nil
}

// Close flushes pending events and stops background goroutines. The database
// and redis clients belong to the caller.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
