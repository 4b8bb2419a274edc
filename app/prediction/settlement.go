package prediction

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/models"
)

// settlement implements Settlement. The market transition is one atomic
// unit; each bet is then settled in its own transaction so a failing bet
// never rolls back or blocks its siblings.
type settlement struct {
	db         *gorm.DB
	repo       Repository
	marketRepo markets.Repository
	book       *ledger.Book
	config     *Config
	coord      *coordinator.Coordinator
	events     events.Emitter
	clock      clock.Clock
	log        logger.Logger
}

// NewSettlement creates the settlement orchestrator.
func NewSettlement(opts ServiceOptions) Settlement {
	opts.defaults()
	return &settlement{
		db:         opts.DB,
		repo:       opts.Repo,
		marketRepo: opts.MarketRepo,
		book:       opts.Book,
		config:     opts.Config,
		coord:      opts.Coordinator,
		events:     opts.Events,
		clock:      opts.Clock,
		log:        opts.Logger,
	}
}

var errAlreadySettled = errors.New("bet settled by another pass")

// settleFunc applies a terminal transition to an active bet and returns the
// posting that pays for it.
type settleFunc func(bet *models.Bet, user *models.User) (ledger.Posting, error)

// Resolve marks the market resolved, then settles every active bet.
func (st *settlement) Resolve(ctx context.Context, marketID uuid.UUID, option string) (*ResolveResult, error) {
	market, err := st.finalize(ctx, marketID, func(m *models.Market) error {
		return m.Resolve(option, st.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	st.log.Info("market resolved", map[string]interface{}{
		"market_id":  market.ID.String(),
		"resolution": option,
	})
	st.events.Emit(events.Event{
		Kind:       events.KindMarketResolved,
		MarketID:   market.ID,
		Payload:    option,
		OccurredAt: st.clock.Now(),
	})

	return st.settleAll(ctx, market, st.payout(option))
}

// VoidMarket cancels the market and refunds every active bet.
func (st *settlement) VoidMarket(ctx context.Context, marketID uuid.UUID) (*ResolveResult, error) {
	market, err := st.finalize(ctx, marketID, func(m *models.Market) error {
		return m.Cancel(st.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	st.log.Info("market voided", map[string]interface{}{"market_id": market.ID.String()})
	st.events.Emit(events.Event{
		Kind:       events.KindMarketCancelled,
		MarketID:   market.ID,
		OccurredAt: st.clock.Now(),
	})

	return st.settleAll(ctx, market, st.refund)
}

// SettlePending settles bets a previous pass left active.
func (st *settlement) SettlePending(ctx context.Context, marketID uuid.UUID) (*ResolveResult, error) {
	market, err := st.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return nil, err
	}

	switch {
	case market.Status == models.MarketStatusResolved && market.Resolution != nil:
		return st.settleAll(ctx, market, st.payout(*market.Resolution))
	case market.Status == models.MarketStatusCancelled:
		return st.settleAll(ctx, market, st.refund)
	default:
		return nil, models.ErrMarketNotResolved
	}
}

// finalize applies a terminal transition under the market lock. Once it
// commits no placement or cancellation can be admitted.
func (st *settlement) finalize(ctx context.Context, marketID uuid.UUID, apply func(*models.Market) error) (*models.Market, error) {
	unlock, err := st.coord.LockMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var market *models.Market
	err = st.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := st.marketRepo.WithTx(tx)

		m, err := repo.GetForUpdate(ctx, marketID)
		if err != nil {
			return err
		}
		from := m.Status
		if err := apply(m); err != nil {
			return err
		}
		m.UpdatedAt = st.clock.Now()

		ok, err := repo.TransitionStatus(ctx, m, from)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrMarketNotResolvable
		}
		market = m
		return nil
	})
	return market, err
}

// settleAll runs once the market is terminal. It is detached from the
// caller's cancellation; each bet is bounded by SettleBetTimeout instead.
func (st *settlement) settleAll(ctx context.Context, market *models.Market, apply settleFunc) (*ResolveResult, error) {
	ctx = context.WithoutCancel(ctx)
	ids, err := st.repo.ListActiveBetIDs(ctx, market.ID)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{Market: market, FailedBetIDs: []uuid.UUID{}}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(st.config.SettlementWorkers)
	for _, id := range ids {
		g.Go(func() error {
			betCtx, cancel := context.WithTimeout(ctx, st.config.SettleBetTimeout)
			err := st.settleOne(betCtx, id, market.ID, apply)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, errAlreadySettled) {
				return nil
			}
			if err != nil {
				st.log.Error(err, map[string]interface{}{
					"op":        "settle bet",
					"bet_id":    id.String(),
					"market_id": market.ID.String(),
					"kind":      models.ErrorKind(err),
				})
				result.FailedCount++
				result.FailedBetIDs = append(result.FailedBetIDs, id)
				return nil
			}
			result.SettledCount++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.FailedBetIDs, func(i, j int) bool {
		return bytes.Compare(result.FailedBetIDs[i][:], result.FailedBetIDs[j][:]) < 0
	})

	st.log.Info("settlement pass finished", map[string]interface{}{
		"market_id": market.ID.String(),
		"settled":   result.SettledCount,
		"failed":    result.FailedCount,
	})
	return result, nil
}

// settleOne is the atomic unit for a single bet: bet row, user counters,
// balance and ledger entry commit together under the user's lock.
func (st *settlement) settleOne(ctx context.Context, betID, marketID uuid.UUID, apply settleFunc) error {
	bet, err := st.repo.GetBetByID(ctx, betID)
	if err != nil {
		return err
	}

	unlock, err := st.coord.LockUser(ctx, bet.UserID)
	if err != nil {
		return err
	}
	defer unlock()

	var posted *models.User
	err = st.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		betRepo := st.repo.WithTx(tx)
		book := st.book.WithTx(tx)

		bet, err = betRepo.GetBetByID(ctx, betID)
		if err != nil {
			return err
		}
		if !bet.IsActive() {
			return errAlreadySettled
		}

		user, err := book.User(ctx, bet.UserID)
		if err != nil {
			return err
		}

		posting, err := apply(bet, user)
		if err != nil {
			return err
		}
		bet.UpdatedAt = st.clock.Now()
		if err := transition(ctx, betRepo, bet); err != nil {
			return err
		}

		posting.BetID = &bet.ID
		posting.MarketID = &marketID
		if _, err := book.Post(ctx, user, posting); err != nil {
			return err
		}
		posted = user
		return nil
	})
	if err != nil {
		return err
	}

	st.events.Emit(events.Event{
		Kind:       events.KindBalanceChanged,
		MarketID:   marketID,
		UserID:     posted.ID,
		BetID:      bet.ID,
		Payload:    posted.Balance,
		OccurredAt: st.clock.Now(),
	})
	return nil
}

// payout settles against the winning option. Losers get a zero entry so
// every settlement appears in the ledger.
func (st *settlement) payout(resolution string) settleFunc {
	return func(bet *models.Bet, user *models.User) (ledger.Posting, error) {
		won, err := bet.Settle(resolution, st.clock.Now())
		if err != nil {
			return ledger.Posting{}, err
		}
		user.RecordSettlement(won)

		if won {
			return ledger.Posting{Delta: bet.ActualPayout, Reason: models.LedgerReasonWin}, nil
		}
		return ledger.Posting{Delta: decimal.Zero, Reason: models.LedgerReasonLoss}, nil
	}
}

func (st *settlement) refund(bet *models.Bet, _ *models.User) (ledger.Posting, error) {
	if err := bet.Refund(st.clock.Now()); err != nil {
		return ledger.Posting{}, err
	}
	return ledger.Posting{Delta: bet.ActualPayout, Reason: models.LedgerReasonRefund, Note: "market voided"}, nil
}
