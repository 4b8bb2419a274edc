package prediction

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/internal/events"
	"github.com/joefazee/marketcore/models"
)

func TestPlaceBet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user("alice", 1000)
	market := f.market()

	res, err := f.svc.PlaceBet(ctx, alice.ID, &PlaceBetRequest{MarketID: market.ID, Option: "yes", Amount: 100})
	require.NoError(t, err)

	bet := res.Bet
	assert.Equal(t, models.BetStatusActive, bet.Status)
	assert.Equal(t, 0.5, bet.OddsAtTime)
	assert.Equal(t, "200.00", bet.PotentialPayout.StringFixed(2))
	assert.Equal(t, epoch, bet.CreatedAt)
	assert.Equal(t, "900.00", res.Balance.StringFixed(2))
	assert.Equal(t, "900.00", f.balance(alice.ID))

	stored := f.reloadMarket(market.ID)
	assert.Equal(t, int64(100), stored.TotalVolume)
	assert.Equal(t, 1, stored.ParticipantCount)
	assert.InDelta(t, 0.7310585786, stored.PriceVector["yes"], 1e-9)
	assert.InDelta(t, 0.2689414214, stored.PriceVector["no"], 1e-9)
	assert.Equal(t, stored.PriceVector, res.PriceVector)

	cached, err := f.opts.Markets.GetPriceVector(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.PriceVector, cached)

	entries, err := ledger.NewRepository(f.db).AllEntries(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[1].Sequence)
	assert.Equal(t, "-100.00", entries[1].AmountDelta.StringFixed(2))
	assert.Equal(t, models.LedgerReasonBet, entries[1].ReasonKind)
	require.NotNil(t, entries[1].BetID)
	assert.Equal(t, bet.ID, *entries[1].BetID)

	assert.Equal(t, 1, f.events.count(events.KindBetPlaced))
	assert.Equal(t, 1, f.events.count(events.KindPriceChanged))
	assert.Equal(t, 1, f.events.count(events.KindBalanceChanged))
	f.requireConsistent(alice.ID)
}

func TestPlaceBetPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user("alice", 100)
	open := f.market()

	closed := f.market()
	require.NoError(t, f.db.Model(&models.Market{}).Where("id = ?", closed.ID).
		Update("status", models.MarketStatusClosed).Error)

	expired := marketEndingAt(f, epoch.Add(-time.Minute))

	tests := []struct {
		name   string
		market uuid.UUID
		option string
		amount int64
		want   error
	}{
		{"unknown market", uuid.New(), "yes", 10, models.ErrRecordNotFound},
		{"closed market", closed.ID, "yes", 10, models.ErrMarketNotOpen},
		{"expired market", expired.ID, "yes", 10, models.ErrMarketExpired},
		{"status before option", expired.ID, "maybe", 10, models.ErrMarketExpired},
		{"unknown option", open.ID, "maybe", 10, models.ErrInvalidOption},
		{"option before amount", open.ID, "maybe", 0, models.ErrInvalidOption},
		{"zero amount", open.ID, "yes", 0, models.ErrInvalidBetAmount},
		{"negative amount", open.ID, "yes", -5, models.ErrInvalidBetAmount},
		{"above maximum", open.ID, "yes", f.config.MaxBetAmount + 1, models.ErrBetTooLarge},
		{"insufficient balance", open.ID, "yes", 101, models.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceBet(ctx, alice.ID, &PlaceBetRequest{MarketID: tt.market, Option: tt.option, Amount: tt.amount})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, "100.00", f.balance(alice.ID))
	assert.Zero(t, f.events.count(events.KindBetPlaced))

	// the whole balance can be staked
	f.place(alice.ID, open.ID, "no", 100)
	assert.Equal(t, "0.00", f.balance(alice.ID))
}

func marketEndingAt(f *fixture, end time.Time) *models.Market {
	m := f.market()
	require.NoError(f.t, f.db.Model(&models.Market{}).Where("id = ?", m.ID).Update("end_date", end).Error)
	return m
}

func TestPlaceBetOneActiveBetPerMarket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user("alice", 1000)
	market := f.market()
	other := f.market()

	first := f.place(alice.ID, market.ID, "yes", 100)

	_, err := f.svc.PlaceBet(ctx, alice.ID, &PlaceBetRequest{MarketID: market.ID, Option: "no", Amount: 50})
	assert.ErrorIs(t, err, models.ErrActiveBetExists)
	assert.Equal(t, "900.00", f.balance(alice.ID), "rejected bet must not debit")

	f.place(alice.ID, other.ID, "yes", 50)

	_, err = f.svc.CancelBet(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	second := f.place(alice.ID, market.ID, "no", 50)
	assert.NotEqual(t, first.ID, second.ID)

	f.requireConsistent(alice.ID)
}

func TestPlaceBetRateLimit(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxBetsPerMinute = 2 })
	ctx := context.Background()
	alice := f.user("alice", 1000)

	f.place(alice.ID, f.market().ID, "yes", 10)
	f.place(alice.ID, f.market().ID, "yes", 10)

	_, err := f.svc.PlaceBet(ctx, alice.ID, &PlaceBetRequest{MarketID: f.market().ID, Option: "yes", Amount: 10})
	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)

	f.clock.Advance(time.Minute)
	f.place(alice.ID, f.market().ID, "yes", 10)
}

func TestRejectedBetsKeepRateBudget(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxBetsPerMinute = 2 })
	ctx := context.Background()
	alice := f.user("alice", 1000)
	market := f.market()

	f.place(alice.ID, market.ID, "yes", 10)
	for i := 0; i < 3; i++ {
		_, err := f.svc.PlaceBet(ctx, alice.ID, &PlaceBetRequest{MarketID: market.ID, Option: "no", Amount: 10})
		require.ErrorIs(t, err, models.ErrActiveBetExists)
	}
	_, err := f.svc.PlaceBet(ctx, alice.ID, &PlaceBetRequest{MarketID: f.market().ID, Option: "yes", Amount: 5000})
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	f.place(alice.ID, f.market().ID, "yes", 10)

	_, err = f.svc.PlaceBet(ctx, alice.ID, &PlaceBetRequest{MarketID: f.market().ID, Option: "yes", Amount: 10})
	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
}

func TestPlaceBetRejectsExtremePrice(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", 1000)
	market := f.market()
	f.setPrices(market.ID, models.PriceVector{"yes": 0, "no": 1})

	_, err := f.svc.PlaceBet(context.Background(), alice.ID, &PlaceBetRequest{MarketID: market.ID, Option: "yes", Amount: 10})
	assert.ErrorIs(t, err, models.ErrPriceUnavailable)
	assert.Equal(t, "1000.00", f.balance(alice.ID))
}

func TestCancelBetWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user("alice", 1000)
	market := f.market()

	bet := f.place(alice.ID, market.ID, "yes", 100)
	f.clock.Advance(4*time.Minute + 59*time.Second)

	cancelled, err := f.svc.CancelBet(ctx, alice.ID, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusRefunded, cancelled.Status)
	assert.Equal(t, "100.00", cancelled.ActualPayout.StringFixed(2))
	assert.Equal(t, "1000.00", f.balance(alice.ID))

	stored := f.reloadMarket(market.ID)
	assert.Equal(t, 0.5, stored.PriceVector["yes"])
	assert.Equal(t, 0.5, stored.PriceVector["no"])
	assert.Equal(t, int64(100), stored.TotalVolume, "volume is cumulative")

	_, err = f.svc.CancelBet(ctx, alice.ID, bet.ID)
	assert.ErrorIs(t, err, models.ErrBetNotActive)

	late := f.place(alice.ID, market.ID, "no", 40)
	f.clock.Advance(5 * time.Minute)
	_, err = f.svc.CancelBet(ctx, alice.ID, late.ID)
	assert.ErrorIs(t, err, models.ErrCancelWindowElapsed)
	assert.Equal(t, models.BetStatusActive, f.reloadBet(late.ID).Status)
	assert.Equal(t, "960.00", f.balance(alice.ID))

	assert.Equal(t, 1, f.events.count(events.KindBetCancelled))
	f.requireConsistent(alice.ID)
}

func TestCancelBetRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user("alice", 1000)
	bob := f.user("bob", 1000)
	market := f.market()

	bet := f.place(alice.ID, market.ID, "yes", 100)

	_, err := f.svc.CancelBet(ctx, bob.ID, bet.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.svc.CancelBet(ctx, alice.ID, uuid.New())
	assert.ErrorIs(t, err, models.ErrRecordNotFound)

	_, err = f.opts.Markets.CloseMarket(ctx, market.ID)
	require.NoError(t, err)
	_, err = f.svc.CancelBet(ctx, alice.ID, bet.ID)
	assert.ErrorIs(t, err, models.ErrMarketNotOpen)
	assert.Equal(t, "900.00", f.balance(alice.ID))
}

func TestGetAndListBets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user("alice", 1000)
	bob := f.user("bob", 1000)

	m1, m2 := f.market(), f.market()
	b1 := f.place(alice.ID, m1.ID, "yes", 10)
	f.clock.Advance(time.Second)
	f.place(alice.ID, m2.ID, "no", 20)
	f.place(bob.ID, m1.ID, "no", 30)

	got, err := f.svc.GetBet(ctx, alice.ID, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, b1.ID, got.ID)

	_, err = f.svc.GetBet(ctx, bob.ID, b1.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	bets, total, err := f.svc.ListBets(ctx, alice.ID, &BetFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, bets, 2)
	assert.Equal(t, int64(20), bets[0].Amount, "newest first")

	bets, total, err = f.svc.ListBets(ctx, alice.ID, &BetFilters{MarketID: &m1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, b1.ID, bets[0].ID)
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	market := f.market()

	q, err := f.svc.Quote(ctx, &markets.QuoteRequest{MarketID: market.ID, Option: "yes", Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, 0.5, q.Odds)
	assert.Equal(t, "100", q.PotentialPayout.String())

	_, err = f.svc.Quote(ctx, &markets.QuoteRequest{MarketID: market.ID, Option: "yes", Amount: 0})
	assert.ErrorIs(t, err, models.ErrInvalidBetAmount)
}

func TestConcurrentPlacementsOnOneMarket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	market := f.market()

	const bettors = 20
	users := make([]*models.User, bettors)
	for i := range users {
		users[i] = f.user(fmt.Sprintf("user%02d", i), 1000)
	}

	var wg sync.WaitGroup
	errs := make(chan error, bettors)
	var want int64
	for i, u := range users {
		amount := int64(10 + i)
		want += amount
		option := "yes"
		if i%3 == 0 {
			option = "no"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PlaceBet(ctx, u.ID, &PlaceBetRequest{MarketID: market.ID, Option: option, Amount: amount})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored := f.reloadMarket(market.ID)
	assert.Equal(t, want, stored.TotalVolume)
	assert.Equal(t, bettors, stored.ParticipantCount)

	pools, err := markets.NewRepository(f.db).PoolByOption(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, markets.NewPricingEngine().PriceVector(stored, pools), stored.PriceVector,
		"stored prices match the final pools")

	for _, u := range users {
		f.requireConsistent(u.ID)
	}
}

func TestConcurrentPlacementsByOneUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user("alice", 1000)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		market := f.market()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PlaceBet(ctx, alice.ID, &PlaceBetRequest{MarketID: market.ID, Option: "yes", Amount: 25})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := ledger.NewRepository(f.db).AllEntries(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, entries, n+1)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Sequence)
	}
	assert.Equal(t, "800.00", f.balance(alice.ID))
	assert.Equal(t, int64(n+1), ledgerVersion(f, alice.ID))
	f.requireConsistent(alice.ID)
}

func ledgerVersion(f *fixture, id uuid.UUID) int64 {
	var u models.User
	require.NoError(f.t, f.db.First(&u, "id = ?", id).Error)
	return u.LedgerVersion
}
