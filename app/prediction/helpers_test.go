package prediction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/internal/clock"
	"github.com/joefazee/marketcore/internal/coordinator"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/models"
	"github.com/joefazee/marketcore/tests/suites"
)

var epoch = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// faultyRepo fails the status write of one bet.
type faultyRepo struct {
	Repository
	failOn uuid.UUID
}

func (f *faultyRepo) WithTx(tx *gorm.DB) Repository {
	return &faultyRepo{Repository: f.Repository.WithTx(tx), failOn: f.failOn}
}

func (f *faultyRepo) TransitionBet(ctx context.Context, bet *models.Bet) (bool, error) {
	if bet.ID == f.failOn {
		return false, models.NewPersistenceError("update bet status", gorm.ErrInvalidTransaction)
	}
	return f.Repository.TransitionBet(ctx, bet)
}

// cancelOnListRepo cancels the caller's context once the market has been
// finalized and the bets to settle are being listed.
type cancelOnListRepo struct {
	Repository
	cancel context.CancelFunc
}

func (c *cancelOnListRepo) ListActiveBetIDs(ctx context.Context, marketID uuid.UUID) ([]uuid.UUID, error) {
	c.cancel()
	return c.Repository.ListActiveBetIDs(ctx, marketID)
}

type fixture struct {
	t          *testing.T
	db         *gorm.DB
	clock      *clock.Fake
	events     *recorder
	config     *Config
	opts       ServiceOptions
	svc        Service
	settlement Settlement
	book       *ledger.Book
}

func newFixture(t *testing.T, modify ...func(*Config)) *fixture {
	t.Helper()

	cfg := GetDefaultConfig()
	for _, m := range modify {
		m(cfg)
	}
	require.NoError(t, cfg.Validate())

	db := suites.NewSQLite(t)
	clk := clock.NewFake(epoch)
	rec := &recorder{}

	f := &fixture{t: t, db: db, clock: clk, events: rec, config: cfg}
	f.opts = ServiceOptions{
		DB:          db,
		Config:      cfg,
		Coordinator: coordinator.NewLocal(),
		Events:      rec,
		Clock:       clk,
	}
	f.opts.defaults()
	f.svc = NewService(f.opts)
	f.settlement = NewSettlement(f.opts)
	f.book = ledger.NewBook(ledger.NewRepository(db), clk)
	return f
}

// withFaultyRepo returns a settlement whose repository fails on betID.
func (f *fixture) withFaultyRepo(betID uuid.UUID) Settlement {
	opts := f.opts
	opts.Repo = &faultyRepo{Repository: NewRepository(f.db), failOn: betID}
	return NewSettlement(opts)
}

func (f *fixture) user(name string, balance int64) *models.User {
	return suites.SeedUser(f.t, f.db, name, balance)
}

func (f *fixture) market(options ...string) *models.Market {
	return suites.SeedMarket(f.t, f.db, f.clock.Now().Add(24*time.Hour), options...)
}

func (f *fixture) setPrices(marketID uuid.UUID, pv models.PriceVector) {
	require.NoError(f.t, f.db.Model(&models.Market{}).Where("id = ?", marketID).Update("price_vector", pv).Error)
}

func (f *fixture) place(userID, marketID uuid.UUID, option string, amount int64) *models.Bet {
	f.t.Helper()
	res, err := f.svc.PlaceBet(context.Background(), userID, &PlaceBetRequest{MarketID: marketID, Option: option, Amount: amount})
	require.NoError(f.t, err)
	return res.Bet
}

func (f *fixture) reloadMarket(id uuid.UUID) *models.Market {
	m, err := markets.NewRepository(f.db).GetByID(context.Background(), id)
	require.NoError(f.t, err)
	return m
}

func (f *fixture) reloadBet(id uuid.UUID) *models.Bet {
	b, err := NewRepository(f.db).GetBetByID(context.Background(), id)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) balance(userID uuid.UUID) string {
	return suites.ReloadUser(f.t, f.db, userID).Balance.StringFixed(2)
}

func (f *fixture) requireConsistent(userIDs ...uuid.UUID) {
	f.t.Helper()
	for _, id := range userIDs {
		report, err := f.book.Audit(context.Background(), id)
		require.NoError(f.t, err)
		require.True(f.t, report.Consistent, "audit problems for %s: %v", id, report.Problems)
	}
}

func (f *fixture) reloadUserStats(id uuid.UUID) *models.User {
	return suites.ReloadUser(f.t, f.db, id)
}
