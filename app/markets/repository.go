package markets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joefazee/marketcore/app/database"
	"github.com/joefazee/marketcore/models"
)

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new market repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// GetAll returns markets with filters and pagination
func (r *repository) GetAll(ctx context.Context, filters *MarketFilters) ([]models.Market, int64, error) {
	var markets []models.Market
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Market{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewPersistenceError("count markets", err)
	}

	query = r.applySorting(query, filters)
	query = r.applyPagination(query, filters)

	if err := query.Find(&markets).Error; err != nil {
		return nil, 0, models.NewPersistenceError("list markets", err)
	}
	return markets, total, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.first(database.ForUpdate(r.db.WithContext(ctx)), id)
}

func (r *repository) first(query *gorm.DB, id uuid.UUID) (*models.Market, error) {
	var market models.Market
	err := query.Where("id = ?", id).First(&market).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, models.NewPersistenceError("get market", err)
	}
	return &market, nil
}

// Create creates a new market
func (r *repository) Create(ctx context.Context, market *models.Market) error {
	if err := r.db.WithContext(ctx).Create(market).Error; err != nil {
		return models.NewPersistenceError("create market", err)
	}
	return nil
}

func (r *repository) SaveState(ctx context.Context, market *models.Market) error {
	err := r.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ?", market.ID).
		Updates(map[string]interface{}{
			"price_vector":      market.PriceVector,
			"total_volume":      market.TotalVolume,
			"participant_count": market.ParticipantCount,
			"updated_at":        market.UpdatedAt,
		}).Error
	if err != nil {
		return models.NewPersistenceError("save market state", err)
	}
	return nil
}

func (r *repository) TransitionStatus(ctx context.Context, market *models.Market, from ...models.MarketStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ? AND status IN ?", market.ID, from).
		Updates(map[string]interface{}{
			"status":          market.Status,
			"resolution":      market.Resolution,
			"resolution_date": market.ResolutionDate,
			"updated_at":      market.UpdatedAt,
		})
	if res.Error != nil {
		return false, models.NewPersistenceError("update market status", res.Error)
	}
	return res.RowsAffected == 1, nil
}

type poolRow struct {
	Option string
	Total  int64
}

// PoolByOption sums the stakes of active bets per option.
func (r *repository) PoolByOption(ctx context.Context, marketID uuid.UUID) (map[string]int64, error) {
	var rows []poolRow
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Select("option, SUM(amount) AS total").
		Where("market_id = ? AND status = ?", marketID, models.BetStatusActive).
		Group("option").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewPersistenceError("sum pools", err)
	}

	pools := make(map[string]int64, len(rows))
	for _, row := range rows {
		pools[row.Option] = row.Total
	}
	return pools, nil
}

// CountParticipants counts distinct bettors over all bets ever placed.
func (r *repository) CountParticipants(ctx context.Context, marketID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("market_id = ?", marketID).
		Distinct("user_id").
		Count(&count).Error
	if err != nil {
		return 0, models.NewPersistenceError("count participants", err)
	}
	return int(count), nil
}

func (r *repository) ListExpiredOpen(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("status = ? AND end_date <= ?", models.MarketStatusOpen, now).
		Order("end_date ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, models.NewPersistenceError("list expired markets", err)
	}
	return ids, nil
}

// applyFilters applies search and filter criteria to the query
func (r *repository) applyFilters(query *gorm.DB, filters *MarketFilters) *gorm.DB {
	if filters == nil {
		return query
	}

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}

	if filters.Search != "" {
		searchTerm := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}

	return query
}

var validSortFields = map[string]bool{
	"created_at":   true,
	"end_date":     true,
	"total_volume": true,
	"title":        true,
}

// applySorting applies sorting to the query
func (r *repository) applySorting(query *gorm.DB, filters *MarketFilters) *gorm.DB {
	sortBy, sortOrder := "created_at", "desc"
	if filters != nil {
		if validSortFields[filters.SortBy] {
			sortBy = filters.SortBy
		}
		if filters.SortOrder == "asc" {
			sortOrder = "asc"
		}
	}
	return query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))
}

// applyPagination applies pagination to the query
func (r *repository) applyPagination(query *gorm.DB, filters *MarketFilters) *gorm.DB {
	if filters == nil {
		filters = &MarketFilters{}
	}
	filters.Normalize()
	return query.Offset((filters.Page - 1) * filters.PerPage).Limit(filters.PerPage)
}
