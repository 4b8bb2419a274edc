package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joefazee/marketcore/internal/sanitizer"
	"github.com/joefazee/marketcore/internal/validator"
	"github.com/joefazee/marketcore/models"
)

// OpenAccountRequest represents the request to open an account
type OpenAccountRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Grant    int64  `json:"grant"`
}

// SanitizeAndValidate cleans the username and checks the opening grant.
func (r *OpenAccountRequest) SanitizeAndValidate(v *validator.Validator, s sanitizer.HTMLStripperer) {
	r.Username = s.Text(r.Username)

	v.Check(validator.IsUsername(r.Username), "username",
		"username must be 3-50 characters of letters, digits, dot, dash or underscore")
	v.Check(r.Grant >= 0, "grant", "grant cannot be negative")
}

// AdjustBalanceRequest represents an operator correction
type AdjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Note   string          `json:"note" binding:"required,max=500"`
}

// SanitizeAndValidate cleans the note and checks the amount.
func (r *AdjustBalanceRequest) SanitizeAndValidate(v *validator.Validator, s sanitizer.HTMLStripperer) {
	r.Note = s.Text(r.Note)

	v.Check(!r.Amount.IsZero(), "amount", "amount must be non-zero")
	v.Check(r.Amount.Equal(r.Amount.Round(2)), "amount", "amount has at most two decimal places")
	v.Check(validator.NotBlank(r.Note), "note", "note is required")
}

// AccountView represents an account in API responses
type AccountView struct {
	ID            uuid.UUID       `json:"id"`
	Username      string          `json:"username"`
	Balance       decimal.Decimal `json:"balance"`
	TotalBets     int             `json:"total_bets"`
	WinningBets   int             `json:"winning_bets"`
	WinRate       float64         `json:"win_rate"`
	LedgerVersion int64           `json:"ledger_version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToAccountView converts a models.User to AccountView
func ToAccountView(user *models.User) *AccountView {
	return &AccountView{
		ID:            user.ID,
		Username:      user.Username,
		Balance:       user.Balance,
		TotalBets:     user.TotalBets,
		WinningBets:   user.WinningBets,
		WinRate:       user.WinRate,
		LedgerVersion: user.LedgerVersion,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// OperationResponse is an account after a posting, with the entry that moved it.
type OperationResponse struct {
	Account *AccountView        `json:"account"`
	Entry   *models.LedgerEntry `json:"entry"`
}
