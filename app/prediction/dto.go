package prediction

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joefazee/marketcore/internal/sanitizer"
	"github.com/joefazee/marketcore/internal/validator"
	"github.com/joefazee/marketcore/models"
)

// PlaceBetRequest represents the request to place a bet
type PlaceBetRequest struct {
	MarketID uuid.UUID `json:"market_id" binding:"required"`
	Option   string    `json:"option" binding:"required,max=255"`
	Amount   int64     `json:"amount" binding:"required"`
}

// SanitizeAndValidate cleans the option label and checks the shape of the request.
func (r *PlaceBetRequest) SanitizeAndValidate(v *validator.Validator, s sanitizer.HTMLStripperer) {
	r.Option = s.Text(r.Option)

	v.Check(r.MarketID != uuid.Nil, "market_id", "market_id is required")
	v.Check(validator.NotBlank(r.Option), "option", "option is required")
	v.Check(r.Amount >= 1, "amount", "amount must be a positive integer")
}

// PlaceBetResult is the accepted bet and the market prices after it.
type PlaceBetResult struct {
	Bet         *models.Bet        `json:"bet"`
	PriceVector models.PriceVector `json:"price_vector"`
	Balance     decimal.Decimal    `json:"balance"`
}

// ResolveResult reports a settlement pass.
type ResolveResult struct {
	Market       *models.Market `json:"market"`
	SettledCount int            `json:"settled_count"`
	FailedCount  int            `json:"failed_count"`
	FailedBetIDs []uuid.UUID    `json:"failed_bet_ids"`
}

// ResolveRequest names the winning option
type ResolveRequest struct {
	Option string `json:"option" binding:"required,max=255"`
}

// BetFilters represents filters for bet queries
type BetFilters struct {
	MarketID  *uuid.UUID       `form:"-"`
	Status    models.BetStatus `form:"status"`
	SortBy    string           `form:"sort_by"`
	SortOrder string           `form:"sort_order"`
	Page      int              `form:"page"`
	PerPage   int              `form:"per_page"`
}

// Normalize clamps paging to sane bounds.
func (f *BetFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
}

// Validate checks the enumerated filter values.
func (f *BetFilters) Validate(v *validator.Validator) {
	v.Check(validator.In(f.Status, "", models.BetStatusActive, models.BetStatusWon,
		models.BetStatusLost, models.BetStatusRefunded), "status", "invalid bet status")
	v.Check(f.SortBy == "" || validSortFields[f.SortBy], "sort_by", "invalid sort field")
	v.Check(validator.In(f.SortOrder, "", "asc", "desc"), "sort_order", "sort order must be either asc or desc")
}
