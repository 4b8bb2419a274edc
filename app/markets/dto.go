package markets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joefazee/marketcore/internal/sanitizer"
	"github.com/joefazee/marketcore/internal/validator"
	"github.com/joefazee/marketcore/models"
)

// CreateMarketRequest represents the request to create a market
// @Description Request payload for creating a new prediction market
type CreateMarketRequest struct {
	// Title Market title/question
	Title string `json:"title" binding:"required,max=255"`

	Description string `json:"description" binding:"max=2000"`

	// Type Type of market (binary, multiple or range)
	Type models.MarketType `json:"type" binding:"required"`

	// Options are the outcome labels in display order
	Options []string `json:"options" binding:"required,min=2,dive,max=255"`

	// Liquidity overrides the configured default when set
	Liquidity *float64 `json:"liquidity,omitempty"`

	// EndDate is when betting stops
	EndDate time.Time `json:"end_date" binding:"required"`
}

// SanitizeAndValidate cleans free text and checks field rules.
func (r *CreateMarketRequest) SanitizeAndValidate(v *validator.Validator, s sanitizer.HTMLStripperer) {
	r.Title = s.Text(r.Title)
	r.Description = s.Text(r.Description)
	r.Options = s.Texts(r.Options)

	v.Check(validator.NotBlank(r.Title), "title", "title is required")
	v.Check(validator.MaxRunes(r.Title, 255), "title", "title must not exceed 255 characters")
	v.Check(validator.In(r.Type, models.MarketTypeBinary, models.MarketTypeMultiple, models.MarketTypeRange),
		"type", "type must be binary, multiple or range")
	v.Check(len(r.Options) >= 2, "options", "at least two options are required")
	v.Check(validator.AllNotBlank(r.Options), "options", "options must not be blank")
	v.Check(validator.NoDuplicates(r.Options), "options", "options must be unique")
	if r.Type == models.MarketTypeBinary {
		v.Check(len(r.Options) == 2, "options", "binary markets have exactly two options")
	}
	if r.Liquidity != nil {
		v.Check(*r.Liquidity > 0, "liquidity", "liquidity must be positive")
	}
	v.Check(!r.EndDate.IsZero(), "end_date", "end_date is required")
}

// MarketFilters represents filters for market queries
type MarketFilters struct {
	Status    models.MarketStatus `form:"status"`
	Type      models.MarketType   `form:"type"`
	Search    string              `form:"search"`
	SortBy    string              `form:"sort_by"`
	SortOrder string              `form:"sort_order"`
	Page      int                 `form:"page"`
	PerPage   int                 `form:"per_page"`
}

// Normalize clamps paging to sane bounds.
func (f *MarketFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
}

// SanitizeAndValidate cleans and validates the filter inputs.
func (f *MarketFilters) SanitizeAndValidate(v *validator.Validator, s sanitizer.HTMLStripperer) {
	f.Search = s.Text(f.Search)

	v.Check(validator.In(f.Status, "", models.MarketStatusOpen, models.MarketStatusClosed,
		models.MarketStatusResolved, models.MarketStatusCancelled), "status", "invalid status")
	v.Check(validator.In(f.Type, "", models.MarketTypeBinary, models.MarketTypeMultiple, models.MarketTypeRange),
		"type", "invalid market type")
	v.Check(f.SortBy == "" || validSortFields[f.SortBy], "sort_by", "invalid sort field")
	v.Check(validator.In(f.SortOrder, "", "asc", "desc"), "sort_order", "sort order must be either asc or desc")
}

// PriceView is the price endpoint payload. Prices are the raw engine
// output; Normalized rescales them to sum to one for display.
type PriceView struct {
	MarketID   uuid.UUID          `json:"market_id"`
	Prices     models.PriceVector `json:"prices"`
	Normalized models.PriceVector `json:"normalized"`
	Sum        float64            `json:"sum"`
}

func NewPriceView(id uuid.UUID, pv models.PriceVector) PriceView {
	return PriceView{MarketID: id, Prices: pv, Normalized: pv.Normalized(), Sum: pv.Sum()}
}

// Quote is the result of pricing a stake before placing it.
type Quote struct {
	MarketID        uuid.UUID          `json:"market_id"`
	Option          string             `json:"option"`
	Amount          int64              `json:"amount"`
	Odds            float64            `json:"odds"`
	PotentialPayout decimal.Decimal    `json:"potential_payout"`
	PricesBefore    models.PriceVector `json:"prices_before"`
	PricesAfter     models.PriceVector `json:"prices_after"`
}

// QuoteRequest asks what a stake would get right now
type QuoteRequest struct {
	MarketID uuid.UUID `json:"market_id" binding:"required"`
	Option   string    `json:"option" binding:"required"`
	Amount   int64     `json:"amount" binding:"required,min=1"`
}
