package markets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/joefazee/marketcore/internal/cache"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/models"
)

// PriceCache is a read-through cache of committed price vectors. Cache
// failures are logged and fall back to the loader; they never fail a read.
// Reads fill the cache only when the key is absent, so a vector loaded
// before a commit cannot replace the one the commit stored with Set.
type PriceCache struct {
	store cache.Cache[models.PriceVector]
	ttl   time.Duration
	group singleflight.Group
	log   logger.Logger
}

// NewPriceCache wraps store. A nil store or zero ttl disables caching.
func NewPriceCache(store cache.Cache[models.PriceVector], ttl time.Duration, log logger.Logger) *PriceCache {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &PriceCache{store: store, ttl: ttl, log: log}
}

func (pc *PriceCache) enabled() bool {
	return pc != nil && pc.store != nil && pc.ttl > 0
}

func priceKey(marketID uuid.UUID) string {
	return "prices:" + marketID.String()
}

// Get returns the cached vector or loads it once for concurrent callers.
func (pc *PriceCache) Get(ctx context.Context, marketID uuid.UUID, load func(context.Context) (models.PriceVector, error)) (models.PriceVector, error) {
	if !pc.enabled() {
		return load(ctx)
	}

	key := priceKey(marketID)
	pv, err := pc.store.Get(ctx, key)
	if err == nil {
		return pv.Clone(), nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		pc.log.Warn("price cache read failed", map[string]interface{}{"market_id": marketID.String(), "error": err.Error()})
	}

	v, err, _ := pc.group.Do(key, func() (interface{}, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		pc.fill(ctx, marketID, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(models.PriceVector).Clone(), nil
}

func (pc *PriceCache) fill(ctx context.Context, marketID uuid.UUID, pv models.PriceVector) {
	if _, err := pc.store.Add(ctx, priceKey(marketID), pv.Clone(), pc.ttl); err != nil {
		pc.log.Warn("price cache fill failed", map[string]interface{}{"market_id": marketID.String(), "error": err.Error()})
	}
}

// Set stores a freshly committed vector, replacing any cached one.
func (pc *PriceCache) Set(ctx context.Context, marketID uuid.UUID, pv models.PriceVector) {
	if !pc.enabled() {
		return
	}
	if err := pc.store.Set(ctx, priceKey(marketID), pv.Clone(), pc.ttl); err != nil {
		pc.log.Warn("price cache write failed", map[string]interface{}{"market_id": marketID.String(), "error": err.Error()})
	}
}
