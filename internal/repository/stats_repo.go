package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockflow/internal/model"
)

// StatsRepository serves the aggregate queries behind the dashboard.
type StatsRepository interface {
	CountItems(ctx context.Context) (int64, error)
	CountCategories(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountRequestsByStatus(ctx context.Context, status string) (int64, error)
	CountItemsBelowThreshold(ctx context.Context) (int64, error)
	InventoryValue(ctx context.Context) (decimal.Decimal, error)
	RecentRequests(ctx context.Context, limit int) ([]model.Request, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Item{}).Count(&count).Error
	return count, err
}

func (r *statsRepository) CountCategories(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Category{}).Count(&count).Error
	return count, err
}

func (r *statsRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Count(&count).Error
	return count, err
}

func (r *statsRepository) CountRequestsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Request{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *statsRepository) CountItemsBelowThreshold(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Item{}).
		Where("low_stock_threshold > 0 AND quantity <= low_stock_threshold").
		Count(&count).Error
	return count, err
}

func (r *statsRepository) InventoryValue(ctx context.Context) (decimal.Decimal, error) {
	var raw struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Item{}).
		Select("COALESCE(SUM(quantity * unit_cost), 0) AS total").
		Scan(&raw).Error
	return raw.Total, err
}

func (r *statsRepository) RecentRequests(ctx context.Context, limit int) ([]model.Request, error) {
	var requests []model.Request
	err := GetDB(ctx, r.db).Preload("Requester").
		Order("created_at desc").Limit(limit).Find(&requests).Error
	return requests, err
}
