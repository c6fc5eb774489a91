package service

import (
	"context"
	"fmt"
	"time"

	"stockflow/internal/repository"
	"stockflow/internal/workflow"
)

type RecentRequest struct {
	ID            string `json:"id"`
	RequestCode   string `json:"request_code"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	RequesterName string `json:"requester_name,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type DashboardStats struct {
	TotalItems        int64           `json:"total_items"`
	TotalCategories   int64           `json:"total_categories"`
	TotalUsers        int64           `json:"total_users"`
	PendingRequests   int64           `json:"pending_requests"`
	ApprovedRequests  int64           `json:"approved_requests"`
	CompletedRequests int64           `json:"completed_requests"`
	RejectedRequests  int64           `json:"rejected_requests"`
	LowStockItems     int64           `json:"low_stock_items"`
	InventoryValue    string          `json:"inventory_value"`
	RecentRequests    []RecentRequest `json:"recent_requests"`
}

type DashboardService interface {
	GetStats(ctx context.Context) (*DashboardStats, error)
}

type dashboardService struct {
	statsRepo repository.StatsRepository
}

func NewDashboardService(statsRepo repository.StatsRepository) DashboardService {
	return &dashboardService{statsRepo: statsRepo}
}

func (s *dashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error

	if stats.TotalItems, err = s.statsRepo.CountItems(ctx); err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	if stats.TotalCategories, err = s.statsRepo.CountCategories(ctx); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	if stats.TotalUsers, err = s.statsRepo.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.PendingRequests, err = s.statsRepo.CountRequestsByStatus(ctx, workflow.StatusPending); err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}
	if stats.ApprovedRequests, err = s.statsRepo.CountRequestsByStatus(ctx, workflow.StatusApproved); err != nil {
		return nil, fmt.Errorf("failed to count approved requests: %w", err)
	}
	if stats.CompletedRequests, err = s.statsRepo.CountRequestsByStatus(ctx, workflow.StatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to count completed requests: %w", err)
	}
	if stats.RejectedRequests, err = s.statsRepo.CountRequestsByStatus(ctx, workflow.StatusRejected); err != nil {
		return nil, fmt.Errorf("failed to count rejected requests: %w", err)
	}
	if stats.LowStockItems, err = s.statsRepo.CountItemsBelowThreshold(ctx); err != nil {
		return nil, fmt.Errorf("failed to count low stock items: %w", err)
	}

	value, err := s.statsRepo.InventoryValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute inventory value: %w", err)
	}
	stats.InventoryValue = value.StringFixed(2)

	recent, err := s.statsRepo.RecentRequests(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent requests: %w", err)
	}
	stats.RecentRequests = make([]RecentRequest, 0, len(recent))
	for _, r := range recent {
		entry := RecentRequest{
			ID:          r.ID.String(),
			RequestCode: r.RequestCode,
			Type:        r.Type,
			Status:      r.Status,
			CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		}
		if r.Requester != nil {
			entry.RequesterName = r.Requester.Username
		}
		stats.RecentRequests = append(stats.RecentRequests, entry)
	}

	return stats, nil
}
