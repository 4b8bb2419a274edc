package suites

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/database"
	"github.com/joefazee/marketcore/models"
)

// NewSQLite returns a private in-memory database with the schema applied.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.NewInMemory()
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedUser inserts a user whose balance is backed by a single grant entry.
func SeedUser(t testing.TB, db *gorm.DB, username string, balance int64) *models.User {
	t.Helper()

	amount := decimal.NewFromInt(balance)
	user := &models.User{Username: username, Balance: amount, LedgerVersion: 1}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.LedgerEntry{
		UserID:        user.ID,
		Sequence:      1,
		AmountDelta:   amount,
		BalanceBefore: decimal.Zero,
		BalanceAfter:  amount,
		ReasonKind:    models.LedgerReasonGrant,
	}).Error)
	return user
}

// SeedMarket inserts an open market with the zero-pool price vector.
func SeedMarket(t testing.TB, db *gorm.DB, endDate time.Time, options ...string) *models.Market {
	t.Helper()

	if len(options) == 0 {
		options = []string{"yes", "no"}
	}
	marketType := models.MarketTypeMultiple
	if len(options) == 2 {
		marketType = models.MarketTypeBinary
	}

	prices := make(models.PriceVector, len(options))
	for _, o := range options {
		prices[o] = 1 / float64(len(options))
	}

	market := &models.Market{
		ID:          uuid.New(),
		Title:       "Seeded market",
		Type:        marketType,
		Status:      models.MarketStatusOpen,
		Options:     options,
		Liquidity:   100,
		PriceVector: prices,
		EndDate:     endDate,
	}
	require.NoError(t, market.Validate())
	require.NoError(t, db.Create(market).Error)
	return market
}

// ReloadUser fetches the current row for id.
func ReloadUser(t testing.TB, db *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	return &u
}
