package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joefazee/marketcore/models"
)

// EntryFilters narrows a history query
type EntryFilters struct {
	Reason   models.LedgerReason `form:"reason"`
	MarketID *uuid.UUID          `form:"-"`
	Page     int                 `form:"page"`
	PerPage  int                 `form:"per_page"`
}

// Normalize clamps paging to sane bounds.
func (f *EntryFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
}

// AuditReport is the outcome of replaying one account.
type AuditReport struct {
	UserID          uuid.UUID       `json:"user_id"`
	Username        string          `json:"username"`
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	ReplayedBalance decimal.Decimal `json:"replayed_balance"`
	LedgerVersion   int64           `json:"ledger_version"`
	Entries         int             `json:"entries"`
	Consistent      bool            `json:"consistent"`
	Problems        []string        `json:"problems,omitempty"`
}
