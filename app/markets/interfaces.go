package markets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/models"
)

// Repository defines the interface for market data access
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetAll(ctx context.Context, filters *MarketFilters) ([]models.Market, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Market, error)
	// GetForUpdate reads the row with a write lock where the dialect has one.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error)
	Create(ctx context.Context, market *models.Market) error

	// SaveState persists the derived fields: prices, volume, participants.
	SaveState(ctx context.Context, market *models.Market) error
	// TransitionStatus writes status, resolution and resolution date only if
	// the stored status is one of from. It reports whether a row changed.
	TransitionStatus(ctx context.Context, market *models.Market, from ...models.MarketStatus) (bool, error)

	PoolByOption(ctx context.Context, marketID uuid.UUID) (map[string]int64, error)
	CountParticipants(ctx context.Context, marketID uuid.UUID) (int, error)
	ListExpiredOpen(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// Service defines the interface for market business logic
type Service interface {
	CreateMarket(ctx context.Context, req *CreateMarketRequest) (*models.Market, error)
	GetMarket(ctx context.Context, id uuid.UUID) (*models.Market, error)
	ListMarkets(ctx context.Context, filters *MarketFilters) ([]models.Market, int64, error)
	GetPriceVector(ctx context.Context, id uuid.UUID) (models.PriceVector, error)
	Quote(ctx context.Context, id uuid.UUID, option string, amount int64) (*Quote, error)
	CloseMarket(ctx context.Context, id uuid.UUID) (*models.Market, error)
	CloseExpiredMarkets(ctx context.Context) (int, error)
	// RememberPrices records a vector committed by another module.
	RememberPrices(ctx context.Context, id uuid.UUID, pv models.PriceVector)
}

// PricingEngine defines the interface for market pricing calculations
type PricingEngine interface {
	PriceVector(market *models.Market, pools map[string]int64) models.PriceVector
	Quote(market *models.Market, pools map[string]int64, option string, amount int64) (*Quote, error)
}
