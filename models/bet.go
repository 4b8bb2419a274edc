package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BetStatus represents the status of a bet
type BetStatus string

const (
	BetStatusActive   BetStatus = "active"
	BetStatusWon      BetStatus = "won"
	BetStatusLost     BetStatus = "lost"
	BetStatusRefunded BetStatus = "refunded"
)

// IsTerminal reports whether no further transition is allowed.
func (s BetStatus) IsTerminal() bool {
	return s == BetStatusWon || s == BetStatusLost || s == BetStatusRefunded
}

// Bet represents a user's stake on one option of a market
type Bet struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_bets_user;index:idx_bets_one_active,unique,where:status = 'active'" json:"user_id"`
	MarketID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_bets_market_status;index:idx_bets_one_active,unique,where:status = 'active'" json:"market_id"`
	Option          string          `gorm:"type:varchar(255);not null" json:"option"`
	Amount          int64           `gorm:"not null" json:"amount"`
	OddsAtTime      float64         `gorm:"not null" json:"odds_at_time"`
	PotentialPayout decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"potential_payout"`
	Status          BetStatus       `gorm:"type:varchar(20);not null;index:idx_bets_market_status" json:"status"`
	ActualPayout    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"actual_payout"`
	CreatedAt       time.Time       `json:"created_at"`
	SettledAt       *time.Time      `json:"settled_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Bet model
func (*Bet) TableName() string {
	return "bets"
}

// BeforeCreate sets up the model before creation
func (b *Bet) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsActive checks if the bet is still open
func (b *Bet) IsActive() bool {
	return b.Status == BetStatusActive
}

// PotentialPayoutFor returns amount / odds rounded to cents.
func PotentialPayoutFor(amount int64, odds float64) decimal.Decimal {
	if odds <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(amount).Div(decimal.NewFromFloat(odds)).Round(2)
}

// Refund marks the bet refunded with its stake returned.
func (b *Bet) Refund(at time.Time) error {
	if !b.IsActive() {
		return ErrBetNotActive
	}
	b.Status = BetStatusRefunded
	b.ActualPayout = decimal.NewFromInt(b.Amount)
	b.SettledAt = &at
	return nil
}

// Settle applies the market resolution and reports whether the bet won.
func (b *Bet) Settle(resolution string, at time.Time) (bool, error) {
	if !b.IsActive() {
		return false, ErrBetNotActive
	}
	b.SettledAt = &at
	if b.Option == resolution {
		b.Status = BetStatusWon
		b.ActualPayout = b.PotentialPayout
		return true, nil
	}
	b.Status = BetStatusLost
	b.ActualPayout = decimal.Zero
	return false, nil
}
