package prediction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/models"
)

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new betting repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// GetBetByID retrieves a bet by ID
func (r *repository) GetBetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, models.NewPersistenceError("get bet", err)
	}
	return &bet, nil
}

var validSortFields = map[string]bool{
	"created_at": true,
	"amount":     true,
	"settled_at": true,
}

// GetBetsByUser retrieves bets for a user with filters and pagination
func (r *repository) GetBetsByUser(ctx context.Context, userID uuid.UUID, filters *BetFilters) ([]models.Bet, int64, error) {
	if filters == nil {
		filters = &BetFilters{}
	}
	filters.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Bet{}).Where("user_id = ?", userID)
	if filters.MarketID != nil {
		query = query.Where("market_id = ?", *filters.MarketID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewPersistenceError("count bets", err)
	}

	sortBy, sortOrder := "created_at", "desc"
	if validSortFields[filters.SortBy] {
		sortBy = filters.SortBy
	}
	if filters.SortOrder == "asc" {
		sortOrder = "asc"
	}

	var bets []models.Bet
	err := query.
		Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Offset((filters.Page - 1) * filters.PerPage).
		Limit(filters.PerPage).
		Find(&bets).Error
	if err != nil {
		return nil, 0, models.NewPersistenceError("list bets", err)
	}
	return bets, total, nil
}

func (r *repository) ListActiveBetIDs(ctx context.Context, marketID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("market_id = ? AND status = ?", marketID, models.BetStatusActive).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, models.NewPersistenceError("list active bets", err)
	}
	return ids, nil
}

func (r *repository) HasActiveBet(ctx context.Context, userID, marketID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("user_id = ? AND market_id = ? AND status = ?", userID, marketID, models.BetStatusActive).
		Count(&count).Error
	if err != nil {
		return false, models.NewPersistenceError("check active bet", err)
	}
	return count > 0, nil
}

// CreateBet creates a new bet
func (r *repository) CreateBet(ctx context.Context, bet *models.Bet) error {
	if err := r.db.WithContext(ctx).Create(bet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrActiveBetExists
		}
		return models.NewPersistenceError("create bet", err)
	}
	return nil
}

func (r *repository) TransitionBet(ctx context.Context, bet *models.Bet) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("id = ? AND status = ?", bet.ID, models.BetStatusActive).
		Updates(map[string]interface{}{
			"status":        bet.Status,
			"actual_payout": bet.ActualPayout,
			"settled_at":    bet.SettledAt,
			"updated_at":    bet.UpdatedAt,
		})
	if res.Error != nil {
		return false, models.NewPersistenceError("update bet status", res.Error)
	}
	return res.RowsAffected == 1, nil
}
