package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new ledger repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, models.NewPersistenceError("get user", err)
	}
	return &user, nil
}

func (r *repository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.User{}).Order("username ASC").Pluck("id", &ids).Error
	if err != nil {
		return nil, models.NewPersistenceError("list users", err)
	}
	return ids, nil
}

func (r *repository) CompareAndSwapUser(ctx context.Context, user *models.User, expectedVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND ledger_version = ?", user.ID, expectedVersion).
		Updates(map[string]interface{}{
			"balance":        user.Balance,
			"ledger_version": user.LedgerVersion,
			"total_bets":     user.TotalBets,
			"winning_bets":   user.WinningBets,
			"win_rate":       user.WinRate,
			"updated_at":     user.UpdatedAt,
		})
	if res.Error != nil {
		return false, models.NewPersistenceError("update balance", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewPersistenceError("append ledger entry", err)
	}
	return nil
}

func (r *repository) ListEntries(ctx context.Context, userID uuid.UUID, filters *EntryFilters) ([]models.LedgerEntry, int64, error) {
	var entries []models.LedgerEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID)
	if filters.Reason != "" {
		query = query.Where("reason_kind = ?", filters.Reason)
	}
	if filters.MarketID != nil {
		query = query.Where("market_id = ?", *filters.MarketID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewPersistenceError("count ledger entries", err)
	}

	offset := (filters.Page - 1) * filters.PerPage
	err := query.Order("sequence DESC").Offset(offset).Limit(filters.PerPage).Find(&entries).Error
	if err != nil {
		return nil, 0, models.NewPersistenceError("list ledger entries", err)
	}
	return entries, total, nil
}

func (r *repository) AllEntries(ctx context.Context, userID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sequence ASC").
		Find(&entries).Error
	if err != nil {
		return nil, models.NewPersistenceError("load ledger", err)
	}
	return entries, nil
}
