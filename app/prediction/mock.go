package prediction

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/models"
)

// MockService is a testify mock of Service.
type MockService struct {
	mock.Mock
}

var _ Service = (*MockService)(nil)

func (m *MockService) PlaceBet(ctx context.Context, userID uuid.UUID, req *PlaceBetRequest) (*PlaceBetResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PlaceBetResult), args.Error(1)
}

func (m *MockService) CancelBet(ctx context.Context, userID, betID uuid.UUID) (*models.Bet, error) {
	args := m.Called(ctx, userID, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockService) GetBet(ctx context.Context, userID, betID uuid.UUID) (*models.Bet, error) {
	args := m.Called(ctx, userID, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockService) ListBets(ctx context.Context, userID uuid.UUID, filters *BetFilters) ([]models.Bet, int64, error) {
	args := m.Called(ctx, userID, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Bet), args.Get(1).(int64), args.Error(2)
}

func (m *MockService) Quote(ctx context.Context, req *markets.QuoteRequest) (*markets.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*markets.Quote), args.Error(1)
}

// MockSettlement is a testify mock of Settlement.
type MockSettlement struct {
	mock.Mock
}

var _ Settlement = (*MockSettlement)(nil)

func (m *MockSettlement) Resolve(ctx context.Context, marketID uuid.UUID, option string) (*ResolveResult, error) {
	args := m.Called(ctx, marketID, option)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResolveResult), args.Error(1)
}

func (m *MockSettlement) VoidMarket(ctx context.Context, marketID uuid.UUID) (*ResolveResult, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResolveResult), args.Error(1)
}

func (m *MockSettlement) SettlePending(ctx context.Context, marketID uuid.UUID) (*ResolveResult, error) {
	args := m.Called(ctx, marketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResolveResult), args.Error(1)
}
