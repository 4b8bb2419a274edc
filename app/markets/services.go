package markets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/models"
)

// ServiceOptions carries the collaborators of the market service.
type ServiceOptions struct {
	DB          *gorm.DB
	Repo        Repository
	Config      *Config
	Engine      PricingEngine
	Prices      *PriceCache
	Coordinator *coordinator.Coordinator
	Events      events.Emitter
	Clock       clock.Clock
	Logger      logger.Logger
}

// service implements the Service interface
type service struct {
	db     *gorm.DB
	repo   Repository
	config *Config
	engine PricingEngine
	prices *PriceCache
	coord  *coordinator.Coordinator
	events events.Emitter
	clock  clock.Clock
	log    logger.Logger
}

// NewService creates a new market service
func NewService(opts ServiceOptions) Service {
	s := &service{
		db:     opts.DB,
		repo:   opts.Repo,
		config: opts.Config,
		engine: opts.Engine,
		prices: opts.Prices,
		coord:  opts.Coordinator,
		events: opts.Events,
		clock:  opts.Clock,
		log:    opts.Logger,
	}
	if s.repo == nil {
		s.repo = NewRepository(s.db)
	}
	if s.config == nil {
		s.config = GetDefaultConfig()
	}
	if s.engine == nil {
		s.engine = NewPricingEngine()
	}
	if s.coord == nil {
		s.coord = coordinator.NewLocal()
	}
	if s.events == nil {
		s.events = events.Discard
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.log == nil {
		s.log = logger.NewNullLogger()
	}
	return s
}

// CreateMarket opens a market with the fallback price vector.
func (s *service) CreateMarket(ctx context.Context, req *CreateMarketRequest) (*models.Market, error) {
	now := s.clock.Now()
	if req.EndDate.Before(now.Add(s.config.MinMarketDuration)) || req.EndDate.After(now.Add(s.config.MaxMarketDuration)) {
		return nil, models.ErrInvalidEndDate
	}

	liquidity := s.config.DefaultLiquidity
	if req.Liquidity != nil {
		liquidity = *req.Liquidity
	}

	market := &models.Market{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      models.MarketStatusOpen,
		Options:     models.Options(append([]string(nil), req.Options...)),
		Liquidity:   liquidity,
		EndDate:     req.EndDate.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	market.PriceVector = s.engine.PriceVector(market, nil)

	if err := market.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, market); err != nil {
		return nil, err
	}

	s.prices.Set(ctx, market.ID, market.PriceVector)
	s.log.Info("market created", map[string]interface{}{
		"market_id": market.ID.String(),
		"type":      string(market.Type),
		"options":   len(market.Options),
	})
	return market, nil
}

func (s *service) GetMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListMarkets(ctx context.Context, filters *MarketFilters) ([]models.Market, int64, error) {
	if filters == nil {
		filters = &MarketFilters{}
	}
	filters.Normalize()
	return s.repo.GetAll(ctx, filters)
}

// GetPriceVector returns the committed raw price vector.
func (s *service) GetPriceVector(ctx context.Context, id uuid.UUID) (models.PriceVector, error) {
	return s.prices.Get(ctx, id, func(ctx context.Context) (models.PriceVector, error) {
		market, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return market.PriceVector, nil
	})
}

func (s *service) RememberPrices(ctx context.Context, id uuid.UUID, pv models.PriceVector) {
	s.prices.Set(ctx, id, pv)
}

// Quote prices a stake against the current pools without placing it.
func (s *service) Quote(ctx context.Context, id uuid.UUID, option string, amount int64) (*Quote, error) {
	market, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := market.AcceptsBets(s.clock.Now()); err != nil {
		return nil, err
	}

	pools, err := s.repo.PoolByOption(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Quote(market, pools, option, amount)
}

// CloseMarket stops betting on an open market ahead of resolution.
func (s *service) CloseMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	unlock, err := s.coord.LockMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var market *models.Market
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		market, err = s.close(ctx, s.repo.WithTx(tx), id, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitClosed(market)
	return market, nil
}

// CloseExpiredMarkets closes every open market whose end date has passed.
// A failure on one market does not stop the others.
func (s *service) CloseExpiredMarkets(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.repo.ListExpiredOpen(ctx, now)
	if err != nil {
		return 0, err
	}

	closed := 0
	var errs []error
	for _, id := range ids {
		ok, err := s.closeExpired(ctx, id, now)
		if err != nil {
			s.log.Error(err, map[string]interface{}{"market_id": id.String(), "op": "close expired market"})
			errs = append(errs, err)
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, errors.Join(errs...)
}

func (s *service) closeExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	unlock, err := s.coord.LockMarket(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()

	var market *models.Market
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		market, err = s.close(ctx, s.repo.WithTx(tx), id, &now)
		return err
	})
	if errors.Is(err, models.ErrMarketNotOpen) || errors.Is(err, errNotExpired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.emitClosed(market)
	return true, nil
}

var errNotExpired = errors.New("market has not reached its end date")

// close flips open to closed. With expiredAt set, markets still before
// their end date are left alone.
func (s *service) close(ctx context.Context, repo Repository, id uuid.UUID, expiredAt *time.Time) (*models.Market, error) {
	market, err := repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if market.Status != models.MarketStatusOpen {
		return nil, models.ErrMarketNotOpen
	}
	if expiredAt != nil && expiredAt.Before(market.EndDate) {
		return nil, errNotExpired
	}

	market.Status = models.MarketStatusClosed
	market.UpdatedAt = s.clock.Now()
	ok, err := repo.TransitionStatus(ctx, market, models.MarketStatusOpen)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrMarketNotOpen
	}
	return market, nil
}

func (s *service) emitClosed(market *models.Market) {
	s.log.Info("market closed", map[string]interface{}{"market_id": market.ID.String()})
	s.events.Emit(events.Event{
		Kind:       events.KindMarketClosed,
		MarketID:   market.ID,
		OccurredAt: market.UpdatedAt,
	})
}

// Reprice recomputes the derived state of market from its active bets and
// persists it through repo. Callers hold the market lock and pass a
// transaction-scoped repository.
func Reprice(ctx context.Context, repo Repository, engine PricingEngine, market *models.Market, now time.Time) error {
	pools, err := repo.PoolByOption(ctx, market.ID)
	if err != nil {
		return err
	}
	participants, err := repo.CountParticipants(ctx, market.ID)
	if err != nil {
		return err
	}

	market.PriceVector = engine.PriceVector(market, pools)
	market.ParticipantCount = participants
	market.UpdatedAt = now
	return repo.SaveState(ctx, market)
}
