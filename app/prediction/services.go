package prediction

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/models"
)

// ServiceOptions carries the collaborators shared by the bet lifecycle and
// the settlement orchestrator.
type ServiceOptions struct {
	DB          *gorm.DB
	Repo        Repository
	MarketRepo  markets.Repository
	Markets     markets.Service
	Engine      markets.PricingEngine
	Book        *ledger.Book
	Risk        RiskEngine
	Config      *Config
	Coordinator *coordinator.Coordinator
	Events      events.Emitter
	Clock       clock.Clock
	Logger      logger.Logger
}

func (o *ServiceOptions) defaults() {
	if o.Config == nil {
		o.Config = GetDefaultConfig()
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Repo == nil {
		o.Repo = NewRepository(o.DB)
	}
	if o.MarketRepo == nil {
		o.MarketRepo = markets.NewRepository(o.DB)
	}
	if o.Engine == nil {
		o.Engine = markets.NewPricingEngine()
	}
	if o.Book == nil {
		o.Book = ledger.NewBook(ledger.NewRepository(o.DB), o.Clock)
	}
	if o.Risk == nil {
		o.Risk = NewRiskEngine(o.Config, o.Clock)
	}
	if o.Coordinator == nil {
		o.Coordinator = coordinator.NewLocal()
	}
	if o.Events == nil {
		o.Events = events.Discard
	}
	if o.Logger == nil {
		o.Logger = logger.NewNullLogger()
	}
	if o.Markets == nil {
		o.Markets = markets.NewService(markets.ServiceOptions{
			DB:          o.DB,
			Repo:        o.MarketRepo,
			Engine:      o.Engine,
			Coordinator: o.Coordinator,
			Events:      o.Events,
			Clock:       o.Clock,
			Logger:      o.Logger,
		})
	}
}

// service implements the Service interface
type service struct {
	db         *gorm.DB
	repo       Repository
	marketRepo markets.Repository
	markets    markets.Service
	engine     markets.PricingEngine
	book       *ledger.Book
	risk       RiskEngine
	config     *Config
	coord      *coordinator.Coordinator
	events     events.Emitter
	clock      clock.Clock
	log        logger.Logger
}

// NewService creates a new betting service
func NewService(opts ServiceOptions) Service {
	opts.defaults()
	return &service{
		db:         opts.DB,
		repo:       opts.Repo,
		marketRepo: opts.MarketRepo,
		markets:    opts.Markets,
		engine:     opts.Engine,
		book:       opts.Book,
		risk:       opts.Risk,
		config:     opts.Config,
		coord:      opts.Coordinator,
		events:     opts.Events,
		clock:      opts.Clock,
		log:        opts.Logger,
	}
}

// PlaceBet debits the stake, records the bet and reprices the market in one
// transaction, holding the market lock and then the user lock.
func (s *service) PlaceBet(ctx context.Context, userID uuid.UUID, req *PlaceBetRequest) (*PlaceBetResult, error) {
	unlock, err := s.coord.LockMarketUser(ctx, req.MarketID, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.risk.CheckRateLimit(userID); err != nil {
		return nil, err
	}

	var result *PlaceBetResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.placeBet(ctx, tx, userID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.risk.RecordBet(userID)

	bet := result.Bet
	s.refreshPrices(ctx, bet.MarketID, result.PriceVector)
	s.log.Info("bet placed", map[string]interface{}{
		"bet_id":    bet.ID.String(),
		"market_id": bet.MarketID.String(),
		"user_id":   userID.String(),
		"amount":    bet.Amount,
		"odds":      bet.OddsAtTime,
	})
	s.emit(events.KindBetPlaced, bet, bet)
	s.emit(events.KindPriceChanged, bet, result.PriceVector)
	s.emit(events.KindBalanceChanged, bet, result.Balance)
	return result, nil
}

func (s *service) placeBet(ctx context.Context, tx *gorm.DB, userID uuid.UUID, req *PlaceBetRequest) (*PlaceBetResult, error) {
	marketRepo := s.marketRepo.WithTx(tx)
	betRepo := s.repo.WithTx(tx)
	book := s.book.WithTx(tx)
	now := s.clock.Now()

	market, err := marketRepo.GetForUpdate(ctx, req.MarketID)
	if err != nil {
		return nil, err
	}
	if err := market.AcceptsBets(now); err != nil {
		return nil, err
	}
	if !market.Options.Contains(req.Option) {
		return nil, models.ErrInvalidOption
	}
	if err := s.risk.CheckBettingLimits(req.Amount); err != nil {
		return nil, err
	}

	user, err := book.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	stake := decimal.NewFromInt(req.Amount)
	if !user.CanDebit(stake) {
		return nil, models.ErrInsufficientBalance
	}

	active, err := betRepo.HasActiveBet(ctx, userID, market.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, models.ErrActiveBetExists
	}

	odds := market.PriceVector[req.Option]
	if odds <= 0 {
		return nil, models.ErrPriceUnavailable
	}

	bet := &models.Bet{
		ID:              uuid.New(),
		UserID:          userID,
		MarketID:        market.ID,
		Option:          req.Option,
		Amount:          req.Amount,
		OddsAtTime:      odds,
		PotentialPayout: models.PotentialPayoutFor(req.Amount, odds),
		Status:          models.BetStatusActive,
		ActualPayout:    decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := book.Post(ctx, user, ledger.Posting{
		Delta:    stake.Neg(),
		Reason:   models.LedgerReasonBet,
		BetID:    &bet.ID,
		MarketID: &market.ID,
	}); err != nil {
		return nil, err
	}

	if err := betRepo.CreateBet(ctx, bet); err != nil {
		return nil, err
	}

	market.TotalVolume += req.Amount
	if err := markets.Reprice(ctx, marketRepo, s.engine, market, now); err != nil {
		return nil, err
	}

	return &PlaceBetResult{
		Bet:         bet,
		PriceVector: market.PriceVector.Clone(),
		Balance:     user.Balance,
	}, nil
}

// CancelBet refunds an active bet inside the cancellation window.
func (s *service) CancelBet(ctx context.Context, userID, betID uuid.UUID) (*models.Bet, error) {
	bet, err := s.repo.GetBetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet.UserID != userID {
		return nil, models.ErrForbidden
	}

	unlock, err := s.coord.LockMarketUser(ctx, bet.MarketID, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		prices  models.PriceVector
		balance decimal.Decimal
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		bet, prices, balance, err = s.cancelBet(ctx, tx, betID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.refreshPrices(ctx, bet.MarketID, prices)
	s.log.Info("bet cancelled", map[string]interface{}{
		"bet_id":    bet.ID.String(),
		"market_id": bet.MarketID.String(),
		"user_id":   userID.String(),
	})
	s.emit(events.KindBetCancelled, bet, bet)
	s.emit(events.KindPriceChanged, bet, prices)
	s.emit(events.KindBalanceChanged, bet, balance)
	return bet, nil
}

func (s *service) cancelBet(ctx context.Context, tx *gorm.DB, betID uuid.UUID) (*models.Bet, models.PriceVector, decimal.Decimal, error) {
	marketRepo := s.marketRepo.WithTx(tx)
	betRepo := s.repo.WithTx(tx)
	book := s.book.WithTx(tx)
	now := s.clock.Now()

	bet, err := betRepo.GetBetByID(ctx, betID)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	if !bet.IsActive() {
		return nil, nil, decimal.Zero, models.ErrBetNotActive
	}

	market, err := marketRepo.GetForUpdate(ctx, bet.MarketID)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	if err := market.AcceptsBets(now); err != nil {
		return nil, nil, decimal.Zero, err
	}
	if now.Sub(bet.CreatedAt) >= s.config.BetCancellationWindow {
		return nil, nil, decimal.Zero, models.ErrCancelWindowElapsed
	}

	if err := bet.Refund(now); err != nil {
		return nil, nil, decimal.Zero, err
	}
	bet.UpdatedAt = now
	if err := transition(ctx, betRepo, bet); err != nil {
		return nil, nil, decimal.Zero, err
	}

	user, err := book.User(ctx, bet.UserID)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	if _, err := book.Post(ctx, user, ledger.Posting{
		Delta:    bet.ActualPayout,
		Reason:   models.LedgerReasonRefund,
		BetID:    &bet.ID,
		MarketID: &bet.MarketID,
	}); err != nil {
		return nil, nil, decimal.Zero, err
	}

	if err := markets.Reprice(ctx, marketRepo, s.engine, market, now); err != nil {
		return nil, nil, decimal.Zero, err
	}
	return bet, market.PriceVector.Clone(), user.Balance, nil
}

// GetBet returns one of the caller's bets.
func (s *service) GetBet(ctx context.Context, userID, betID uuid.UUID) (*models.Bet, error) {
	bet, err := s.repo.GetBetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet.UserID != userID {
		return nil, models.ErrForbidden
	}
	return bet, nil
}

func (s *service) ListBets(ctx context.Context, userID uuid.UUID, filters *BetFilters) ([]models.Bet, int64, error) {
	return s.repo.GetBetsByUser(ctx, userID, filters)
}

func (s *service) Quote(ctx context.Context, req *markets.QuoteRequest) (*markets.Quote, error) {
	if err := s.risk.CheckBettingLimits(req.Amount); err != nil {
		return nil, err
	}
	return s.markets.Quote(ctx, req.MarketID, req.Option, req.Amount)
}

func (s *service) refreshPrices(ctx context.Context, marketID uuid.UUID, pv models.PriceVector) {
	s.markets.RememberPrices(ctx, marketID, pv)
}

func (s *service) emit(kind events.Kind, bet *models.Bet, payload interface{}) {
	s.events.Emit(events.Event{
		Kind:       kind,
		MarketID:   bet.MarketID,
		UserID:     bet.UserID,
		BetID:      bet.ID,
		Payload:    payload,
		OccurredAt: s.clock.Now(),
	})
}

// transition persists a bet status change that must start from active.
func transition(ctx context.Context, repo Repository, bet *models.Bet) error {
	ok, err := repo.TransitionBet(ctx, bet)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrBetNotActive
	}
	return nil
}
