package repository

import (
	"context"

	"gorm.io/gorm"

	"stockflow/internal/model"
)

type IssuanceRepository interface {
	Create(ctx context.Context, issuance *model.Issuance) error
	List(ctx context.Context, page, limit int) ([]model.Issuance, int64, error)
}

type issuanceRepository struct {
	db *gorm.DB
}

func NewIssuanceRepository(db *gorm.DB) IssuanceRepository {
	return &issuanceRepository{db: db}
}

func (r *issuanceRepository) Create(ctx context.Context, issuance *model.Issuance) error {
	return GetDB(ctx, r.db).Create(issuance).Error
}

func (r *issuanceRepository) List(ctx context.Context, page, limit int) ([]model.Issuance, int64, error) {
	var issuances []model.Issuance
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Issuance{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Item").Preload("Issuer").
		Order("created_at desc").Offset(offset).Limit(limit).Find(&issuances).Error; err != nil {
		return nil, 0, err
	}

	return issuances, total, nil
}
