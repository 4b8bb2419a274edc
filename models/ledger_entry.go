package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerReason classifies a balance-affecting event
type LedgerReason string

const (
	LedgerReasonBet        LedgerReason = "bet"
	LedgerReasonRefund     LedgerReason = "refund"
	LedgerReasonWin        LedgerReason = "win"
	LedgerReasonLoss       LedgerReason = "loss"
	LedgerReasonGrant      LedgerReason = "grant"
	LedgerReasonAdjustment LedgerReason = "adjustment"
)

// IsValid reports whether r is a known reason.
func (r LedgerReason) IsValid() bool {
	switch r {
	case LedgerReasonBet, LedgerReasonRefund, LedgerReasonWin,
		LedgerReasonLoss, LedgerReasonGrant, LedgerReasonAdjustment:
		return true
	}
	return false
}

// LedgerEntry is one immutable line of a user's balance history
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_user_sequence" json:"user_id"`
	Sequence      int64           `gorm:"not null;uniqueIndex:idx_ledger_user_sequence" json:"sequence"`
	AmountDelta   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount_delta"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"`
	ReasonKind    LedgerReason    `gorm:"type:varchar(20);not null" json:"reason_kind"`
	BetID         *uuid.UUID      `gorm:"type:uuid;index" json:"bet_id,omitempty"`
	MarketID      *uuid.UUID      `gorm:"type:uuid;index" json:"market_id,omitempty"`
	Note          string          `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName specifies the table name for LedgerEntry model
func (*LedgerEntry) TableName() string {
	return "ledger_entries"
}

// BeforeCreate sets up the model before creation
func (e *LedgerEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate rejects any attempt to rewrite history.
func (e *LedgerEntry) BeforeUpdate(_ *gorm.DB) error {
	return ErrInconsistentLedgerLine
}

// IsBalanceConsistent checks if the balance calculation is consistent
func (e *LedgerEntry) IsBalanceConsistent() bool {
	return e.BalanceBefore.Add(e.AmountDelta).Equal(e.BalanceAfter)
}

// Validate performs validation on the ledger entry
func (e *LedgerEntry) Validate() error {
	if e.UserID == uuid.Nil {
		return ErrInvalidUserID
	}
	if !e.ReasonKind.IsValid() {
		return ErrInvalidLedgerReason
	}
	if !e.IsBalanceConsistent() {
		return ErrInconsistentLedgerLine
	}
	if e.BalanceAfter.IsNegative() {
		return ErrInsufficientBalance
	}
	return nil
}
