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

type SupervisorRequest struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
	Active *bool  `json:"active"`
}

type SupervisorService interface {
	CreateSupervisor(ctx context.Context, actor Actor, req SupervisorRequest) (*model.Supervisor, error)
	UpdateSupervisor(ctx context.Context, actor Actor, id string, req SupervisorRequest) (*model.Supervisor, error)
	DeleteSupervisor(ctx context.Context, actor Actor, id string) error
	ListSupervisors(ctx context.Context, page, limit int) ([]model.Supervisor, int64, error)
}

type supervisorService struct {
	repo      repository.SupervisorRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewSupervisorService(repo repository.SupervisorRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) SupervisorService {
	return &supervisorService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func (s *supervisorService) CreateSupervisor(ctx context.Context, actor Actor, req SupervisorRequest) (*model.Supervisor, error) {
	supervisor := &model.Supervisor{Name: req.Name, Email: req.Email, Active: true}
	if req.Active != nil {
		supervisor.Active = *req.Active
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, supervisor); err != nil {
			return fmt.Errorf("failed to create supervisor: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateSupervisor, supervisor.ID.String(), supervisor.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return supervisor, nil
}

func (s *supervisorService) UpdateSupervisor(ctx context.Context, actor Actor, id string, req SupervisorRequest) (*model.Supervisor, error) {
	supervisorID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid supervisor id: %w", err)
	}

	supervisor, err := s.repo.FindByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("supervisor %w", ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	supervisor.Name = req.Name
	supervisor.Email = req.Email
	if req.Active != nil {
		supervisor.Active = *req.Active
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, supervisor); err != nil {
			return fmt.Errorf("failed to update supervisor: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateSupervisor, supervisor.ID.String(), supervisor.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return supervisor, nil
}

func (s *supervisorService) DeleteSupervisor(ctx context.Context, actor Actor, id string) error {
	supervisorID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid supervisor id: %w", err)
	}

	supervisor, err := s.repo.FindByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("supervisor %w", ErrNotFound)
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, supervisorID); err != nil {
			return fmt.Errorf("failed to delete supervisor: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteSupervisor, supervisor.ID.String(), supervisor.Name,
			map[string]interface{}{"deleted": true})
	})
}

func (s *supervisorService) ListSupervisors(ctx context.Context, page, limit int) ([]model.Supervisor, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, page, limit)
}
