package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stockflow/internal/model"
	"stockflow/internal/repository"
)

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CategoryService interface {
	CreateCategory(ctx context.Context, actor Actor, req CategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, actor Actor, id string, req CategoryRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, actor Actor, id string) error
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	ListCategories(ctx context.Context, page, limit int) ([]model.Category, int64, error)
}

type categoryService struct {
	repo      repository.CategoryRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewCategoryService(repo repository.CategoryRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CategoryService {
	return &categoryService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func (s *categoryService) CreateCategory(ctx context.Context, actor Actor, req CategoryRequest) (*model.Category, error) {
	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return nil, errors.New("category name already exists")
	}

	category := &model.Category{Name: req.Name, Description: req.Description}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, category); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateCategory, category.ID.String(), category.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, actor Actor, id string, req CategoryRequest) (*model.Category, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid category id: %w", err)
	}

	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %w", ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if req.Name != category.Name {
		if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
			return nil, errors.New("category name already exists")
		}
	}

	category.Name = req.Name
	category.Description = req.Description

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, category); err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateCategory, category.ID.String(), category.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, actor Actor, id string) error {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid category id: %w", err)
	}

	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("category %w", ErrNotFound)
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, categoryID); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteCategory, category.ID.String(), category.Name,
			map[string]interface{}{"deleted": true})
	})
}

func (s *categoryService) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid category id: %w", err)
	}
	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %w", ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return category, nil
}

func (s *categoryService) ListCategories(ctx context.Context, page, limit int) ([]model.Category, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, page, limit)
}
