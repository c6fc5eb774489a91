package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"stockflow/internal/model"
	"stockflow/internal/repository"
)

type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

type SettingService interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	GetSetting(ctx context.Context, key string) (string, error)
	UpdateSettings(ctx context.Context, actor Actor, req UpdateSettingsRequest) (map[string]string, error)
}

type settingService struct {
	repo      repository.SettingRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewSettingService(repo repository.SettingRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) SettingService {
	return &settingService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func (s *settingService) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}
	return settings, nil
}

func (s *settingService) GetSetting(ctx context.Context, key string) (string, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("setting %w", ErrNotFound)
		}
		return "", fmt.Errorf("database error: %w", err)
	}
	return setting.Value, nil
}

func (s *settingService) UpdateSettings(ctx context.Context, actor Actor, req UpdateSettingsRequest) (map[string]string, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for key, value := range req.Settings {
			if err := s.repo.Upsert(txCtx, &model.Setting{Key: key, Value: value}); err != nil {
				return fmt.Errorf("failed to upsert setting %q: %w", key, err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateSetting, "", "settings", req.Settings)
	})
	if err != nil {
		return nil, err
	}
	return s.ListSettings(ctx)
}
