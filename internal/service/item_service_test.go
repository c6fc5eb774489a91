package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stockflow/internal/model"
)

type stubCategoryRepo struct {
	categories map[uuid.UUID]*model.Category
}

func newStubCategoryRepo() *stubCategoryRepo {
	return &stubCategoryRepo{categories: make(map[uuid.UUID]*model.Category)}
}

func (r *stubCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	clone := *category
	r.categories[category.ID] = &clone
	return nil
}

func (r *stubCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	clone := *category
	r.categories[category.ID] = &clone
	return nil
}

func (r *stubCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.categories, id)
	return nil
}

func (r *stubCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, ok := r.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *category
	return &clone, nil
}

func (r *stubCategoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	for _, category := range r.categories {
		if category.Name == name {
			clone := *category
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCategoryRepo) List(ctx context.Context, page, limit int) ([]model.Category, int64, error) {
	var out []model.Category
	for _, category := range r.categories {
		out = append(out, *category)
	}
	return out, int64(len(out)), nil
}

type stubIssuanceRepo struct {
	issuances []model.Issuance
}

func (r *stubIssuanceRepo) Create(ctx context.Context, issuance *model.Issuance) error {
	if issuance.ID == uuid.Nil {
		issuance.ID = uuid.New()
	}
	r.issuances = append(r.issuances, *issuance)
	return nil
}

func (r *stubIssuanceRepo) List(ctx context.Context, page, limit int) ([]model.Issuance, int64, error) {
	return r.issuances, int64(len(r.issuances)), nil
}

type itemFixture struct {
	svc       ItemService
	items     *stubItemRepo
	issuances *stubIssuanceRepo
	audit     *stubAuditRepo
	hub       *stubHub
	actor     Actor
}

func newItemFixture(t *testing.T) *itemFixture {
	t.Helper()
	f := &itemFixture{
		items:     newStubItemRepo(),
		issuances: &stubIssuanceRepo{},
		audit:     &stubAuditRepo{},
		hub:       &stubHub{},
		actor:     Actor{UserID: uuid.NewString(), IP: "10.0.0.2"},
	}
	f.svc = NewItemService(f.items, newStubCategoryRepo(), f.issuances, f.audit, stubTxManager{}, f.hub)
	return f
}

func TestCreateItemParsesUnitCost(t *testing.T) {
	f := newItemFixture(t)

	item, err := f.svc.CreateItem(context.Background(), f.actor, CreateItemRequest{
		SKU:               "CBL-001",
		Name:              "Fiber cable",
		Quantity:          20,
		LowStockThreshold: 5,
		UnitCost:          "12.5",
		Unit:              "m",
	})
	require.NoError(t, err)

	assert.Equal(t, "12.50", item.UnitCost)
	assert.False(t, item.LowStock)
	assert.Equal(t, model.ActionCreateItem, f.audit.lastAction())
}

func TestCreateItemRejectsNegativeCost(t *testing.T) {
	f := newItemFixture(t)

	_, err := f.svc.CreateItem(context.Background(), f.actor, CreateItemRequest{
		SKU:      "CBL-002",
		Name:     "Patch cable",
		UnitCost: "-3",
	})
	assert.ErrorContains(t, err, "unit_cost must be non-negative")
	assert.Empty(t, f.audit.entries)
}

func TestAdjustStockRecordsMovement(t *testing.T) {
	f := newItemFixture(t)
	id := f.items.addItem("Connector", 10)

	item, err := f.svc.AdjustStock(context.Background(), f.actor, id.String(), AdjustStockRequest{
		Delta:  -4,
		Reason: "damaged in storage",
	})
	require.NoError(t, err)

	assert.Equal(t, 6, item.Quantity)
	require.Len(t, f.items.movements, 1)
	assert.Equal(t, model.MovementAdjust, f.items.movements[0].MovementType)
	assert.Equal(t, -4, f.items.movements[0].QuantityChanged)
	assert.Equal(t, 6, f.items.movements[0].StockAfter)
	assert.Equal(t, model.ActionAdjustStock, f.audit.lastAction())
	assert.Contains(t, f.hub.events, "stock_changed")
}

func TestAdjustStockCannotGoNegative(t *testing.T) {
	f := newItemFixture(t)
	id := f.items.addItem("Connector", 3)

	_, err := f.svc.AdjustStock(context.Background(), f.actor, id.String(), AdjustStockRequest{
		Delta:  -5,
		Reason: "oops",
	})
	assert.ErrorContains(t, err, "below zero")
	assert.Equal(t, 3, f.items.items[id].Quantity)
	assert.Empty(t, f.items.movements)
}

func TestIssueItemDecrementsAndLogs(t *testing.T) {
	f := newItemFixture(t)
	id := f.items.addItem("Splitter", 8)

	err := f.svc.IssueItem(context.Background(), f.actor, IssueItemRequest{
		ItemID:   id.String(),
		Quantity: 3,
		IssuedTo: "Crew B",
		Project:  "North district",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, f.items.items[id].Quantity)
	require.Len(t, f.issuances.issuances, 1)
	assert.Equal(t, "Crew B", f.issuances.issuances[0].IssuedTo)
	require.Len(t, f.items.movements, 1)
	assert.Equal(t, model.MovementIssue, f.items.movements[0].MovementType)
	assert.Equal(t, model.ActionIssueItem, f.audit.lastAction())
}

func TestIssueItemExceedingStockFails(t *testing.T) {
	f := newItemFixture(t)
	id := f.items.addItem("Splitter", 2)

	err := f.svc.IssueItem(context.Background(), f.actor, IssueItemRequest{
		ItemID:   id.String(),
		Quantity: 3,
		IssuedTo: "Crew B",
	})
	assert.ErrorContains(t, err, "exceeds available stock")
	assert.Equal(t, 2, f.items.items[id].Quantity)
	assert.Empty(t, f.issuances.issuances)
}

func TestGetItemMissingIsNotFound(t *testing.T) {
	f := newItemFixture(t)

	_, err := f.svc.GetItem(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListLowStockFlagsItems(t *testing.T) {
	f := newItemFixture(t)

	low := f.items.addItem("ONT", 2)
	f.items.items[low].LowStockThreshold = 5
	ok := f.items.addItem("Router", 50)
	f.items.items[ok].LowStockThreshold = 5

	items, err := f.svc.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ONT", items[0].Name)
	assert.True(t, items[0].LowStock)
}
