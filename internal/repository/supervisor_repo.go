package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stockflow/internal/model"
)

type SupervisorRepository interface {
	Create(ctx context.Context, supervisor *model.Supervisor) error
	Update(ctx context.Context, supervisor *model.Supervisor) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supervisor, error)
	List(ctx context.Context, page, limit int) ([]model.Supervisor, int64, error)
	ListActive(ctx context.Context) ([]model.Supervisor, error)
}

type supervisorRepository struct {
	db *gorm.DB
}

func NewSupervisorRepository(db *gorm.DB) SupervisorRepository {
	return &supervisorRepository{db: db}
}

func (r *supervisorRepository) Create(ctx context.Context, supervisor *model.Supervisor) error {
	return GetDB(ctx, r.db).Create(supervisor).Error
}

func (r *supervisorRepository) Update(ctx context.Context, supervisor *model.Supervisor) error {
	return GetDB(ctx, r.db).Save(supervisor).Error
}

func (r *supervisorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Supervisor{}).Error
}

func (r *supervisorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Supervisor, error) {
	var supervisor model.Supervisor
	if err := GetDB(ctx, r.db).First(&supervisor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supervisor, nil
}

func (r *supervisorRepository) List(ctx context.Context, page, limit int) ([]model.Supervisor, int64, error) {
	var supervisors []model.Supervisor
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Supervisor{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&supervisors).Error; err != nil {
		return nil, 0, err
	}

	return supervisors, total, nil
}

func (r *supervisorRepository) ListActive(ctx context.Context) ([]model.Supervisor, error) {
	var supervisors []model.Supervisor
	if err := GetDB(ctx, r.db).Where("active = ?", true).Find(&supervisors).Error; err != nil {
		return nil, err
	}
	return supervisors, nil
}
