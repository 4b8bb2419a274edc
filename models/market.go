package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// MarketType represents the type of market
type MarketType string

const (
	MarketTypeBinary   MarketType = "binary"
	MarketTypeMultiple MarketType = "multiple"
	MarketTypeRange    MarketType = "range"
)

// MarketStatus represents the current status of a market
type MarketStatus string

const (
	MarketStatusOpen      MarketStatus = "open"
	MarketStatusClosed    MarketStatus = "closed"
	MarketStatusResolved  MarketStatus = "resolved"
	MarketStatusCancelled MarketStatus = "cancelled"
)

// PriceSumTolerance bounds |sum(prices) - 1| for vectors that must sum to one.
const PriceSumTolerance = 1e-9

// Options is the ordered list of outcome labels of a market.
type Options []string

// Value implements driver.Valuer interface
func (o Options) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(o))
	return string(b), err
}

// Scan implements sql.Scanner interface
func (o *Options) Scan(value interface{}) error {
	return scanJSON(value, o)
}

func (Options) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

// Contains reports whether label is one of the options.
func (o Options) Contains(label string) bool {
	for _, opt := range o {
		if opt == label {
			return true
		}
	}
	return false
}

// PriceVector maps every option of a market to its current price.
type PriceVector map[string]float64

// Value implements driver.Valuer interface
func (p PriceVector) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]float64(p))
	return string(b), err
}

// Scan implements sql.Scanner interface
func (p *PriceVector) Scan(value interface{}) error {
	return scanJSON(value, p)
}

func (PriceVector) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

// Sum returns the total of all prices.
func (p PriceVector) Sum() float64 {
	var s float64
	for _, v := range p {
		s += v
	}
	return s
}

// Normalized returns a copy scaled so the prices sum to one.
func (p PriceVector) Normalized() PriceVector {
	out := make(PriceVector, len(p))
	sum := p.Sum()
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for k := range p {
			out[k] = 1 / float64(len(p))
		}
		return out
	}
	for k, v := range p {
		out[k] = v / sum
	}
	return out
}

// Clone returns an independent copy.
func (p PriceVector) Clone() PriceVector {
	out := make(PriceVector, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// CoversExactly reports whether the vector keys equal the option set.
func (p PriceVector) CoversExactly(options Options) bool {
	if len(p) != len(options) {
		return false
	}
	for _, opt := range options {
		if _, ok := p[opt]; !ok {
			return false
		}
	}
	return true
}

// Market represents a prediction market
type Market struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string       `gorm:"type:varchar(255);not null" json:"title"`
	Description      string       `gorm:"type:text" json:"description"`
	Type             MarketType   `gorm:"type:varchar(20);not null" json:"type"`
	Status           MarketStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Options          Options      `gorm:"not null" json:"options"`
	Liquidity        float64      `gorm:"not null" json:"liquidity"`
	PriceVector      PriceVector  `gorm:"not null" json:"price_vector"`
	TotalVolume      int64        `gorm:"not null;default:0" json:"total_volume"`
	ParticipantCount int          `gorm:"not null;default:0" json:"participant_count"`
	EndDate          time.Time    `gorm:"not null;index" json:"end_date"`
	Resolution       *string      `gorm:"type:varchar(255)" json:"resolution"`
	ResolutionDate   *time.Time   `json:"resolution_date"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// TableName specifies the table name for Market model
func (*Market) TableName() string {
	return "markets"
}

// BeforeCreate sets up the model before creation
func (m *Market) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AcceptsBets checks if the market takes new bets at the given instant.
func (m *Market) AcceptsBets(now time.Time) error {
	if m.Status != MarketStatusOpen {
		return ErrMarketNotOpen
	}
	if !now.Before(m.EndDate) {
		return ErrMarketExpired
	}
	return nil
}

// IsTerminal reports whether the market can no longer change.
func (m *Market) IsTerminal() bool {
	return m.Status == MarketStatusResolved || m.Status == MarketStatusCancelled
}

// CanResolve checks if the market can be resolved
func (m *Market) CanResolve() bool {
	return m.Status == MarketStatusOpen || m.Status == MarketStatusClosed
}

// Resolve moves the market to its terminal resolved state.
func (m *Market) Resolve(option string, at time.Time) error {
	if !m.CanResolve() {
		return ErrMarketNotResolvable
	}
	if !m.Options.Contains(option) {
		return ErrInvalidOption
	}
	m.Status = MarketStatusResolved
	m.Resolution = &option
	m.ResolutionDate = &at
	return nil
}

// Cancel voids the market.
func (m *Market) Cancel(at time.Time) error {
	if !m.CanResolve() {
		return ErrMarketNotCancellable
	}
	m.Status = MarketStatusCancelled
	m.ResolutionDate = &at
	return nil
}

// Validate performs validation on the market model
func (m *Market) Validate() error {
	if m.Title == "" {
		return ErrInvalidMarketTitle
	}
	switch m.Type {
	case MarketTypeBinary:
		if len(m.Options) != 2 {
			return ErrInvalidBinaryOptions
		}
	case MarketTypeMultiple, MarketTypeRange:
	default:
		return ErrInvalidMarketType
	}
	if len(m.Options) < 2 {
		return ErrInvalidMarketOptions
	}
	seen := make(map[string]struct{}, len(m.Options))
	for _, opt := range m.Options {
		if opt == "" {
			return ErrInvalidMarketOptions
		}
		if _, dup := seen[opt]; dup {
			return ErrInvalidMarketOptions
		}
		seen[opt] = struct{}{}
	}
	if m.Liquidity <= 0 || math.IsNaN(m.Liquidity) || math.IsInf(m.Liquidity, 0) {
		return ErrInvalidLiquidity
	}
	if m.EndDate.IsZero() {
		return ErrInvalidEndDate
	}
	return nil
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
}

func jsonColumnType(db *gorm.DB) string {
	if db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}
