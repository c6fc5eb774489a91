package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockflow/internal/metrics"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/internal/websocket"
)

// DTOs
type CreateItemRequest struct {
	SKU               string `json:"sku" binding:"required"`
	Name              string `json:"name" binding:"required"`
	CategoryID        string `json:"category_id"`
	Quantity          int    `json:"quantity" binding:"min=0"`
	LowStockThreshold int    `json:"low_stock_threshold" binding:"min=0"`
	UnitCost          string `json:"unit_cost"` // decimal string, e.g. "12.50"
	Unit              string `json:"unit"`
	Location          string `json:"location"`
}

type UpdateItemRequest struct {
	SKU               string `json:"sku" binding:"required"`
	Name              string `json:"name" binding:"required"`
	CategoryID        string `json:"category_id"`
	LowStockThreshold int    `json:"low_stock_threshold" binding:"min=0"`
	UnitCost          string `json:"unit_cost"`
	Unit              string `json:"unit"`
	Location          string `json:"location"`
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type IssueItemRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	IssuedTo string `json:"issued_to" binding:"required"`
	Project  string `json:"project"`
	Note     string `json:"note"`
}

type ItemResponse struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	CategoryID        string `json:"category_id,omitempty"`
	CategoryName      string `json:"category_name,omitempty"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	UnitCost          string `json:"unit_cost"`
	Unit              string `json:"unit"`
	Location          string `json:"location"`
	LowStock          bool   `json:"low_stock"`
}

type ItemService interface {
	GetItems(ctx context.Context, filter repository.ItemFilter) ([]ItemResponse, int64, error)
	GetItem(ctx context.Context, id string) (ItemResponse, error)
	CreateItem(ctx context.Context, actor Actor, req CreateItemRequest) (ItemResponse, error)
	UpdateItem(ctx context.Context, actor Actor, id string, req UpdateItemRequest) (ItemResponse, error)
	DeleteItem(ctx context.Context, actor Actor, id string) error
	AdjustStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (ItemResponse, error)
	IssueItem(ctx context.Context, actor Actor, req IssueItemRequest) error
	ListIssuances(ctx context.Context, page, limit int) ([]model.Issuance, int64, error)
	ListLowStock(ctx context.Context) ([]ItemResponse, error)
	ListMovements(ctx context.Context, itemID string, page, limit int) ([]model.StockMovement, int64, error)
}

type itemService struct {
	itemRepo     repository.ItemRepository
	categoryRepo repository.CategoryRepository
	issuanceRepo repository.IssuanceRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          EventBroadcaster
}

func NewItemService(
	itemRepo repository.ItemRepository,
	categoryRepo repository.CategoryRepository,
	issuanceRepo repository.IssuanceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub EventBroadcaster,
) ItemService {
	return &itemService{
		itemRepo:     itemRepo,
		categoryRepo: categoryRepo,
		issuanceRepo: issuanceRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

func toItemResponse(item *model.Item) ItemResponse {
	resp := ItemResponse{
		ID:                item.ID.String(),
		SKU:               item.SKU,
		Name:              item.Name,
		Quantity:          item.Quantity,
		LowStockThreshold: item.LowStockThreshold,
		UnitCost:          item.UnitCost.StringFixed(2),
		Unit:              item.Unit,
		Location:          item.Location,
		LowStock:          item.LowStockThreshold > 0 && item.Quantity <= item.LowStockThreshold,
	}
	if item.CategoryID != nil {
		resp.CategoryID = item.CategoryID.String()
	}
	if item.Category != nil {
		resp.CategoryName = item.Category.Name
	}
	return resp
}

func (s *itemService) parseCategoryID(ctx context.Context, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	categoryID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid category_id: %w", err)
	}
	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &categoryID, nil
}

func parseUnitCost(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	cost, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid unit_cost: %w", err)
	}
	if cost.IsNegative() {
		return decimal.Zero, errors.New("unit_cost must be non-negative")
	}
	return cost, nil
}

func (s *itemService) GetItems(ctx context.Context, filter repository.ItemFilter) ([]ItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	items, total, err := s.itemRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ItemResponse, 0, len(items))
	for i := range items {
		res = append(res, toItemResponse(&items[i]))
	}

	return res, total, nil
}

func (s *itemService) GetItem(ctx context.Context, id string) (ItemResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return ItemResponse{}, fmt.Errorf("invalid item id: %w", err)
	}
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ItemResponse{}, fmt.Errorf("item %w", ErrNotFound)
		}
		return ItemResponse{}, fmt.Errorf("database error: %w", err)
	}
	return toItemResponse(item), nil
}

func (s *itemService) CreateItem(ctx context.Context, actor Actor, req CreateItemRequest) (ItemResponse, error) {
	categoryID, err := s.parseCategoryID(ctx, req.CategoryID)
	if err != nil {
		return ItemResponse{}, err
	}
	unitCost, err := parseUnitCost(req.UnitCost)
	if err != nil {
		return ItemResponse{}, err
	}

	item := model.Item{
		SKU:               req.SKU,
		Name:              req.Name,
		CategoryID:        categoryID,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		UnitCost:          unitCost,
		Unit:              req.Unit,
		Location:          req.Location,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Create(txCtx, &item); err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateItem, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return ItemResponse{}, err
	}

	return toItemResponse(&item), nil
}

func (s *itemService) UpdateItem(ctx context.Context, actor Actor, id string, req UpdateItemRequest) (ItemResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return ItemResponse{}, fmt.Errorf("invalid item id: %w", err)
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ItemResponse{}, fmt.Errorf("item %w", ErrNotFound)
		}
		return ItemResponse{}, fmt.Errorf("database error: %w", err)
	}

	categoryID, err := s.parseCategoryID(ctx, req.CategoryID)
	if err != nil {
		return ItemResponse{}, err
	}
	unitCost, err := parseUnitCost(req.UnitCost)
	if err != nil {
		return ItemResponse{}, err
	}

	item.SKU = req.SKU
	item.Name = req.Name
	item.CategoryID = categoryID
	item.LowStockThreshold = req.LowStockThreshold
	item.UnitCost = unitCost
	item.Unit = req.Unit
	item.Location = req.Location
	item.Category = nil

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateItem, item.ID.String(), item.Name, req)
	})
	if err != nil {
		return ItemResponse{}, err
	}

	return toItemResponse(item), nil
}

func (s *itemService) DeleteItem(ctx context.Context, actor Actor, id string) error {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid item id: %w", err)
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("item %w", ErrNotFound)
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Delete(txCtx, itemID); err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteItem, item.ID.String(), item.Name,
			map[string]interface{}{"deleted": true})
	})
}

// AdjustStock applies a signed manual correction under a row lock and records
// the movement.
func (s *itemService) AdjustStock(ctx context.Context, actor Actor, id string, req AdjustStockRequest) (ItemResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return ItemResponse{}, fmt.Errorf("invalid item id: %w", err)
	}

	var result *model.Item
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, lockErr := s.itemRepo.FindByIDForUpdate(txCtx, itemID)
		if lockErr != nil {
			if errors.Is(lockErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("item %w", ErrNotFound)
			}
			return fmt.Errorf("failed to lock item: %w", lockErr)
		}

		stockAfter := item.Quantity + req.Delta
		if stockAfter < 0 {
			return fmt.Errorf("adjustment would drive stock below zero (current %d, delta %d)", item.Quantity, req.Delta)
		}

		if err := s.itemRepo.UpdateQuantity(txCtx, itemID, stockAfter); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}
		movement := &model.StockMovement{
			ItemID:          itemID,
			MovementType:    model.MovementAdjust,
			QuantityChanged: req.Delta,
			StockAfter:      stockAfter,
		}
		if err := s.itemRepo.RecordMovement(txCtx, movement); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
		metrics.StockMovements.WithLabelValues(model.MovementAdjust).Inc()

		item.Quantity = stockAfter
		result = item
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionAdjustStock, item.ID.String(), item.Name,
			map[string]interface{}{"delta": req.Delta, "reason": req.Reason, "stock_after": stockAfter})
	})
	if err != nil {
		return ItemResponse{}, err
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(websocket.EventStockChanged, map[string]interface{}{
			"item_id":  result.ID.String(),
			"quantity": result.Quantity,
		})
	}
	return toItemResponse(result), nil
}

// IssueItem hands stock out directly ("items out") with the same locking and
// ledger discipline as request finalize.
func (s *itemService) IssueItem(ctx context.Context, actor Actor, req IssueItemRequest) error {
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return fmt.Errorf("invalid item_id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, lockErr := s.itemRepo.FindByIDForUpdate(txCtx, itemID)
		if lockErr != nil {
			if errors.Is(lockErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("item %w", ErrNotFound)
			}
			return fmt.Errorf("failed to lock item: %w", lockErr)
		}

		if req.Quantity > item.Quantity {
			return fmt.Errorf("exceeds available stock (requested %d, available %d)", req.Quantity, item.Quantity)
		}
		stockAfter := item.Quantity - req.Quantity

		if err := s.itemRepo.UpdateQuantity(txCtx, itemID, stockAfter); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}

		issuance := &model.Issuance{
			ItemID:   itemID,
			Quantity: req.Quantity,
			IssuedTo: req.IssuedTo,
			Project:  req.Project,
			IssuedBy: actor.uid(),
			Note:     req.Note,
		}
		if err := s.issuanceRepo.Create(txCtx, issuance); err != nil {
			return fmt.Errorf("failed to create issuance: %w", err)
		}

		movement := &model.StockMovement{
			ItemID:          itemID,
			ReferenceID:     &issuance.ID,
			MovementType:    model.MovementIssue,
			QuantityChanged: -req.Quantity,
			StockAfter:      stockAfter,
		}
		if err := s.itemRepo.RecordMovement(txCtx, movement); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
		metrics.StockMovements.WithLabelValues(model.MovementIssue).Inc()

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionIssueItem, item.ID.String(), item.Name,
			map[string]interface{}{
				"quantity":    req.Quantity,
				"issued_to":   req.IssuedTo,
				"project":     req.Project,
				"stock_after": stockAfter,
			})
	})
	if err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(websocket.EventStockChanged, map[string]interface{}{
			"item_id": itemID.String(),
		})
	}
	return nil
}

func (s *itemService) ListIssuances(ctx context.Context, page, limit int) ([]model.Issuance, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.issuanceRepo.List(ctx, page, limit)
}

func (s *itemService) ListLowStock(ctx context.Context) ([]ItemResponse, error) {
	items, err := s.itemRepo.ListBelowThreshold(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]ItemResponse, 0, len(items))
	for i := range items {
		res = append(res, toItemResponse(&items[i]))
	}
	return res, nil
}

func (s *itemService) ListMovements(ctx context.Context, itemID string, page, limit int) ([]model.StockMovement, int64, error) {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid item id: %w", err)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.itemRepo.ListMovements(ctx, id, page, limit)
}
