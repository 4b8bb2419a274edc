package prediction

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/models"
)

// Repository defines the interface for betting data access
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetBetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error)
	GetBetsByUser(ctx context.Context, userID uuid.UUID, filters *BetFilters) ([]models.Bet, int64, error)
	// ListActiveBetIDs returns the ids of active bets on a market, oldest first.
	ListActiveBetIDs(ctx context.Context, marketID uuid.UUID) ([]uuid.UUID, error)
	HasActiveBet(ctx context.Context, userID, marketID uuid.UUID) (bool, error)
	CreateBet(ctx context.Context, bet *models.Bet) error
	// TransitionBet writes the settled fields only while the stored bet is
	// still active and reports whether it did.
	TransitionBet(ctx context.Context, bet *models.Bet) (bool, error)
}

// Service defines the interface for betting business logic
type Service interface {
	PlaceBet(ctx context.Context, userID uuid.UUID, req *PlaceBetRequest) (*PlaceBetResult, error)
	CancelBet(ctx context.Context, userID, betID uuid.UUID) (*models.Bet, error)
	GetBet(ctx context.Context, userID, betID uuid.UUID) (*models.Bet, error)
	ListBets(ctx context.Context, userID uuid.UUID, filters *BetFilters) ([]models.Bet, int64, error)
	Quote(ctx context.Context, req *markets.QuoteRequest) (*markets.Quote, error)
}

// Settlement drives markets to a terminal state and settles their bets.
type Settlement interface {
	Resolve(ctx context.Context, marketID uuid.UUID, option string) (*ResolveResult, error)
	VoidMarket(ctx context.Context, marketID uuid.UUID) (*ResolveResult, error)
	// SettlePending retries bets left active on a terminal market.
	SettlePending(ctx context.Context, marketID uuid.UUID) (*ResolveResult, error)
}

// RiskEngine defines the interface for betting risk management. Callers
// hold the user's lock between CheckRateLimit and RecordBet so rejected bets
// cost no budget.
type RiskEngine interface {
	CheckBettingLimits(amount int64) error
	CheckRateLimit(userID uuid.UUID) error
	RecordBet(userID uuid.UUID)
	Prune() int
}
