package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is an account holder. Balance is a cache of the ledger.
type User struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Username      string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"username"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	TotalBets     int             `gorm:"not null;default:0" json:"total_bets"`
	WinningBets   int             `gorm:"not null;default:0" json:"winning_bets"`
	WinRate       float64         `gorm:"not null;default:0" json:"win_rate"`
	LedgerVersion int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (*User) TableName() string {
	return "users"
}

// BeforeCreate sets up the model before creation
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// CanDebit checks if the balance covers amount
func (u *User) CanDebit(amount decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(amount)
}

// RecordSettlement bumps the settled-bet counters and recomputes the win rate.
func (u *User) RecordSettlement(won bool) {
	u.TotalBets++
	if won {
		u.WinningBets++
	}
	u.WinRate = float64(u.WinningBets) / float64(u.TotalBets) * 100
}
