package markets

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/joefazee/marketcore/models"
)

// MockService is a testify mock of Service.
type MockService struct {
	mock.Mock
}

var _ Service = (*MockService)(nil)

func (m *MockService) CreateMarket(ctx context.Context, req *CreateMarketRequest) (*models.Market, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockService) GetMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockService) ListMarkets(ctx context.Context, filters *MarketFilters) ([]models.Market, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Market), args.Get(1).(int64), args.Error(2)
}

func (m *MockService) GetPriceVector(ctx context.Context, id uuid.UUID) (models.PriceVector, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.PriceVector), args.Error(1)
}

func (m *MockService) Quote(ctx context.Context, id uuid.UUID, option string, amount int64) (*Quote, error) {
	args := m.Called(ctx, id, option, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Quote), args.Error(1)
}

func (m *MockService) CloseMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockService) CloseExpiredMarkets(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockService) RememberPrices(ctx context.Context, id uuid.UUID, pv models.PriceVector) {
	m.Called(ctx, id, pv)
}
