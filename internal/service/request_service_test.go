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
	"stockflow/internal/repository"
	"stockflow/internal/workflow"
)

// --- In-memory stubs ---

type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type stubHub struct {
	events []string
}

func (h *stubHub) BroadcastEvent(event string, data map[string]interface{}) {
	h.events = append(h.events, event)
}

type stubRequestRepo struct {
	requests   map[uuid.UUID]*model.Request
	approvals  []model.Approval
	rejections []model.Rejection
}

func newStubRequestRepo() *stubRequestRepo {
	return &stubRequestRepo{requests: make(map[uuid.UUID]*model.Request)}
}

func (r *stubRequestRepo) Create(ctx context.Context, req *model.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *stubRequestRepo) CreateItem(ctx context.Context, item *model.RequestItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	req, ok := r.requests[item.RequestID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	req.Items = append(req.Items, *item)
	return nil
}

func (r *stubRequestRepo) Update(ctx context.Context, req *model.Request) error {
	stored, ok := r.requests[req.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = req.Status
	stored.ReleaseBy = req.ReleaseBy
	return nil
}

func (r *stubRequestRepo) UpdateItem(ctx context.Context, item *model.RequestItem) error {
	req, ok := r.requests[item.RequestID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range req.Items {
		if req.Items[i].ID == item.ID {
			req.Items[i].QuantityReceived = item.QuantityReceived
			req.Items[i].QuantityReturned = item.QuantityReturned
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *req
	return &clone, nil
}

func (r *stubRequestRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return r.FindByID(ctx, id)
}

func (r *stubRequestRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *req
	clone.Items = append([]model.RequestItem(nil), req.Items...)
	for _, approval := range r.approvals {
		if approval.RequestID == id {
			clone.Approvals = append(clone.Approvals, approval)
		}
	}
	for i := range r.rejections {
		if r.rejections[i].RequestID == id {
			clone.Rejection = &r.rejections[i]
		}
	}
	return &clone, nil
}

func (r *stubRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]model.Request, int64, error) {
	var out []model.Request
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

func (r *stubRequestRepo) CreateApproval(ctx context.Context, approval *model.Approval) error {
	if approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	r.approvals = append(r.approvals, *approval)
	return nil
}

func (r *stubRequestRepo) CreateRejection(ctx context.Context, rejection *model.Rejection) error {
	if rejection.ID == uuid.Nil {
		rejection.ID = uuid.New()
	}
	r.rejections = append(r.rejections, *rejection)
	return nil
}

func (r *stubRequestRepo) CountByRequestCodePrefix(ctx context.Context, prefix string) (int64, error) {
	return int64(len(r.requests)), nil
}

type stubItemRepo struct {
	items     map[uuid.UUID]*model.Item
	movements []model.StockMovement
}

func newStubItemRepo() *stubItemRepo {
	return &stubItemRepo{items: make(map[uuid.UUID]*model.Item)}
}

func (r *stubItemRepo) addItem(name string, quantity int) uuid.UUID {
	id := uuid.New()
	r.items[id] = &model.Item{ID: id, SKU: "SKU-" + name, Name: name, Quantity: quantity}
	return id
}

func (r *stubItemRepo) Create(ctx context.Context, item *model.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *stubItemRepo) Update(ctx context.Context, item *model.Item) error {
	if _, ok := r.items[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

func (r *stubItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *stubItemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *item
	return &clone, nil
}

func (r *stubItemRepo) FindBySKU(ctx context.Context, sku string) (*model.Item, error) {
	for _, item := range r.items {
		if item.SKU == sku {
			clone := *item
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubItemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]model.Item, int64, error) {
	var out []model.Item
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (r *stubItemRepo) ListBelowThreshold(ctx context.Context) ([]model.Item, error) {
	var out []model.Item
	for _, item := range r.items {
		if item.LowStockThreshold > 0 && item.Quantity <= item.LowStockThreshold {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubItemRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	item, ok := r.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Quantity = quantity
	return nil
}

func (r *stubItemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return r.FindByID(ctx, id)
}

func (r *stubItemRepo) RecordMovement(ctx context.Context, movement *model.StockMovement) error {
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *stubItemRepo) ListMovements(ctx context.Context, itemID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, movement := range r.movements {
		if movement.ItemID == itemID {
			out = append(out, movement)
		}
	}
	return out, int64(len(out)), nil
}

type stubAuditRepo struct {
	entries []model.AuditLog
}

func (r *stubAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubAuditRepo) List(ctx context.Context, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

func (r *stubAuditRepo) lastAction() string {
	if len(r.entries) == 0 {
		return ""
	}
	return r.entries[len(r.entries)-1].Action
}

// --- Fixtures ---

type requestFixture struct {
	svc       RequestService
	requests  *stubRequestRepo
	items     *stubItemRepo
	audit     *stubAuditRepo
	hub       *stubHub
	actor     Actor
	itemA     uuid.UUID
	itemB     uuid.UUID
	requestID uuid.UUID
}

func newRequestFixture(t *testing.T, requestType string, stockA, stockB int) *requestFixture {
	t.Helper()

	f := &requestFixture{
		requests: newStubRequestRepo(),
		items:    newStubItemRepo(),
		audit:    &stubAuditRepo{},
		hub:      &stubHub{},
		actor:    Actor{UserID: uuid.NewString(), IP: "10.0.0.1"},
	}
	f.svc = NewRequestService(f.requests, f.items, f.audit, stubTxManager{}, f.hub)
	f.itemA = f.items.addItem("Cable", stockA)
	f.itemB = f.items.addItem("Router", stockB)

	resp, err := f.svc.CreateRequest(context.Background(), f.actor, CreateRequestDTO{
		Type:    requestType,
		Project: "Fiber rollout",
		Items: []RequestItemDTO{
			{ItemID: f.itemA.String(), QuantityRequested: 5},
			{ItemID: f.itemB.String(), QuantityRequested: 2},
		},
	})
	require.NoError(t, err)

	f.requestID = uuid.MustParse(resp.ID)
	return f
}

func (f *requestFixture) approve(t *testing.T) {
	t.Helper()
	_, err := f.svc.ApproveRequest(context.Background(), f.actor, f.requestID.String(),
		ApproveRequestDTO{ApproverName: "Supervisor One"})
	require.NoError(t, err)
}

func (f *requestFixture) finalizeLines(received map[uuid.UUID]int) []FinalizeItemDTO {
	stored := f.requests.requests[f.requestID]
	lines := make([]FinalizeItemDTO, 0, len(stored.Items))
	for _, line := range stored.Items {
		qty := received[line.ItemID]
		lines = append(lines, FinalizeItemDTO{
			RequestItemID:    line.ID.String(),
			QuantityReceived: &qty,
		})
	}
	return lines
}

// --- Tests ---

func TestCreateRequestGeneratesCodeAndAudits(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)

	stored := f.requests.requests[f.requestID]
	assert.Equal(t, workflow.StatusPending, stored.Status)
	assert.Regexp(t, `^REQ-\d{8}-\d{4}$`, stored.RequestCode)
	assert.Len(t, stored.Items, 2)

	assert.Equal(t, model.ActionCreateRequest, f.audit.lastAction())
	assert.Equal(t, "10.0.0.1", f.audit.entries[0].IPAddress)
	assert.Contains(t, f.hub.events, "request_status")
}

func TestCreateRequestUnknownItem(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)

	_, err := f.svc.CreateRequest(context.Background(), f.actor, CreateRequestDTO{
		Type:  workflow.TypeMaterialRequest,
		Items: []RequestItemDTO{{ItemID: uuid.NewString(), QuantityRequested: 1}},
	})
	assert.ErrorContains(t, err, "item not found")
}

func TestApprovePendingRequest(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)

	resp, err := f.svc.ApproveRequest(context.Background(), f.actor, f.requestID.String(),
		ApproveRequestDTO{ApproverName: "Supervisor One", Signature: "data:image/png;base64,AAAA"})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusApproved, resp.Status)
	assert.Len(t, resp.Approvals, 1)
	assert.Equal(t, "Supervisor One", resp.Approvals[0].ApproverName)
	assert.Equal(t, model.ActionApproveRequest, f.audit.lastAction())
}

func TestApproveAgainCoSigns(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)
	f.approve(t)

	resp, err := f.svc.ApproveRequest(context.Background(), f.actor, f.requestID.String(),
		ApproveRequestDTO{ApproverName: "Supervisor Two"})
	require.NoError(t, err)

	// Status unchanged, second signature appended
	assert.Equal(t, workflow.StatusApproved, resp.Status)
	assert.Len(t, resp.Approvals, 2)
}

func TestRejectPendingRequest(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)

	resp, err := f.svc.RejectRequest(context.Background(), f.actor, f.requestID.String(),
		RejectRequestDTO{Reason: "budget hold", RejectorName: "Finance"})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusRejected, resp.Status)
	require.NotNil(t, resp.Rejection)
	assert.Equal(t, "budget hold", resp.Rejection.Reason)
}

func TestRejectApprovedKeepsApprovals(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)
	f.approve(t)

	resp, err := f.svc.RejectRequest(context.Background(), f.actor, f.requestID.String(),
		RejectRequestDTO{Reason: "site cancelled", RejectorName: "PM"})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusRejected, resp.Status)
	assert.Len(t, resp.Approvals, 1)
}

func TestRejectCompletedFails(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)
	f.approve(t)

	_, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     f.finalizeLines(map[uuid.UUID]int{f.itemA: 1, f.itemB: 1}),
	})
	require.NoError(t, err)

	_, err = f.svc.RejectRequest(context.Background(), f.actor, f.requestID.String(),
		RejectRequestDTO{Reason: "too late", RejectorName: "PM"})
	var trErr *workflow.TransitionError
	assert.ErrorAs(t, err, &trErr)
}

func TestFinalizePendingFails(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)

	_, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     f.finalizeLines(map[uuid.UUID]int{f.itemA: 1, f.itemB: 1}),
	})
	var trErr *workflow.TransitionError
	assert.ErrorAs(t, err, &trErr)
}

func TestFinalizeMaterialRequestDecrementsStock(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 4)
	f.approve(t)

	resp, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     f.finalizeLines(map[uuid.UUID]int{f.itemA: 5, f.itemB: 2}),
	})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, resp.Status)
	assert.Equal(t, "Warehouse", resp.ReleaseBy)
	assert.Equal(t, 5, f.items.items[f.itemA].Quantity)
	assert.Equal(t, 2, f.items.items[f.itemB].Quantity)

	// One ledger row per line, stock recorded after the change
	require.Len(t, f.items.movements, 2)
	for _, movement := range f.items.movements {
		assert.Equal(t, model.MovementRequestOut, movement.MovementType)
		assert.Negative(t, movement.QuantityChanged)
	}
	assert.Equal(t, model.ActionFinalizeRequest, f.audit.lastAction())
}

func TestFinalizeFailingLineLeavesStockUntouched(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 5, 4)
	f.approve(t)

	// First line fits, second exceeds stock; nothing may change
	_, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     f.finalizeLines(map[uuid.UUID]int{f.itemA: 3, f.itemB: 10}),
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "exceeds available stock")
	assert.ErrorContains(t, err, "Router")

	assert.Equal(t, 5, f.items.items[f.itemA].Quantity)
	assert.Equal(t, 4, f.items.items[f.itemB].Quantity)
	assert.Empty(t, f.items.movements)
	assert.Equal(t, workflow.StatusApproved, f.requests.requests[f.requestID].Status)
}

func TestFinalizeExactStockSucceeds(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 5, 5)
	f.approve(t)

	_, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     f.finalizeLines(map[uuid.UUID]int{f.itemA: 5, f.itemB: 5}),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.items.items[f.itemA].Quantity)
	assert.Equal(t, 0, f.items.items[f.itemB].Quantity)
}

func TestFinalizeItemReturnIncrementsStock(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeItemReturn, 3, 0)
	f.approve(t)

	stored := f.requests.requests[f.requestID]
	lines := make([]FinalizeItemDTO, 0, len(stored.Items))
	for _, line := range stored.Items {
		returned := 2
		lines = append(lines, FinalizeItemDTO{
			RequestItemID:    line.ID.String(),
			QuantityReturned: &returned,
		})
	}

	resp, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     lines,
	})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, resp.Status)
	assert.Equal(t, 5, f.items.items[f.itemA].Quantity)
	assert.Equal(t, 2, f.items.items[f.itemB].Quantity)
	for _, movement := range f.items.movements {
		assert.Equal(t, model.MovementReturnIn, movement.MovementType)
		assert.Positive(t, movement.QuantityChanged)
	}
}

func TestFinalizeUnknownLineRejected(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)
	f.approve(t)

	// A stray line id must abort the finalize, not be silently skipped
	one := 1
	lines := append(f.finalizeLines(map[uuid.UUID]int{f.itemA: 1, f.itemB: 1}),
		FinalizeItemDTO{RequestItemID: uuid.NewString(), QuantityReceived: &one})

	_, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     lines,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "does not belong to this request")

	assert.Equal(t, 10, f.items.items[f.itemA].Quantity)
	assert.Empty(t, f.items.movements)
	assert.Equal(t, workflow.StatusApproved, f.requests.requests[f.requestID].Status)
}

func TestGetRequestMissingIsNotFound(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)

	_, err := f.svc.GetRequest(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFinalizeMissingLine(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)
	f.approve(t)

	stored := f.requests.requests[f.requestID]
	one := 1
	_, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items: []FinalizeItemDTO{
			{RequestItemID: stored.Items[0].ID.String(), QuantityReceived: &one},
		},
	})
	assert.ErrorContains(t, err, "missing finalize line")
}

func TestFinalizeRecordsReconciledQuantities(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)
	f.approve(t)

	// Received less than requested (5 requested, 3 received)
	resp, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     f.finalizeLines(map[uuid.UUID]int{f.itemA: 3, f.itemB: 1}),
	})
	require.NoError(t, err)

	for _, line := range resp.Items {
		require.NotNil(t, line.QuantityReceived)
		if line.ItemID == f.itemA.String() {
			assert.Equal(t, 5, line.QuantityRequested)
			assert.Equal(t, 3, *line.QuantityReceived)
		}
	}
	assert.Equal(t, 7, f.items.items[f.itemA].Quantity)
}

func TestEveryMutationWritesOneAuditEntry(t *testing.T) {
	f := newRequestFixture(t, workflow.TypeMaterialRequest, 10, 10)
	require.Len(t, f.audit.entries, 1) // create

	f.approve(t)
	require.Len(t, f.audit.entries, 2)

	_, err := f.svc.FinalizeRequest(context.Background(), f.actor, f.requestID.String(), FinalizeRequestDTO{
		ReleaseBy: "Warehouse",
		Items:     f.finalizeLines(map[uuid.UUID]int{f.itemA: 1, f.itemB: 1}),
	})
	require.NoError(t, err)
	require.Len(t, f.audit.entries, 3)

	actions := []string{f.audit.entries[0].Action, f.audit.entries[1].Action, f.audit.entries[2].Action}
	assert.Equal(t, []string{model.ActionCreateRequest, model.ActionApproveRequest, model.ActionFinalizeRequest}, actions)
}
