package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stockflow/internal/metrics"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/internal/websocket"
	"stockflow/internal/workflow"
)

// --- DTOs ---

type RequestItemDTO struct {
	ItemID            string `json:"item_id" binding:"required"`
	QuantityRequested int    `json:"quantity_requested" binding:"required,gt=0"`
}

type CreateRequestDTO struct {
	Type       string           `json:"type" binding:"required,oneof=material_request item_return"`
	Project    string           `json:"project"`
	Location   string           `json:"location"`
	TeamLeader string           `json:"team_leader"`
	ISP        string           `json:"isp"`
	Items      []RequestItemDTO `json:"items" binding:"required,min=1,dive"`
}

type ApproveRequestDTO struct {
	ApproverName string `json:"approver_name" binding:"required"`
	Signature    string `json:"signature"`
}

type RejectRequestDTO struct {
	Reason       string `json:"reason" binding:"required"`
	RejectorName string `json:"rejector_name" binding:"required"`
}

type FinalizeItemDTO struct {
	RequestItemID    string `json:"request_item_id" binding:"required"`
	QuantityReceived *int   `json:"quantity_received"`
	QuantityReturned *int   `json:"quantity_returned"`
}

type FinalizeRequestDTO struct {
	ReleaseBy string            `json:"release_by" binding:"required"`
	Items     []FinalizeItemDTO `json:"items" binding:"required,min=1,dive"`
}

type RequestItemResponse struct {
	ID                string `json:"id"`
	ItemID            string `json:"item_id"`
	ItemName          string `json:"item_name"`
	ItemSKU           string `json:"item_sku"`
	QuantityRequested int    `json:"quantity_requested"`
	QuantityReceived  *int   `json:"quantity_received"`
	QuantityReturned  *int   `json:"quantity_returned"`
}

type ApprovalResponse struct {
	ID           string `json:"id"`
	ApproverName string `json:"approver_name"`
	Signature    string `json:"signature,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type RejectionResponse struct {
	Reason       string `json:"reason"`
	RejectorName string `json:"rejector_name"`
	CreatedAt    string `json:"created_at"`
}

type RequestResponse struct {
	ID            string                `json:"id"`
	RequestCode   string                `json:"request_code"`
	Type          string                `json:"type"`
	Status        string                `json:"status"`
	RequesterName string                `json:"requester_name,omitempty"`
	Project       string                `json:"project"`
	Location      string                `json:"location"`
	TeamLeader    string                `json:"team_leader"`
	ISP           string                `json:"isp"`
	ReleaseBy     string                `json:"release_by,omitempty"`
	Items         []RequestItemResponse `json:"items"`
	Approvals     []ApprovalResponse    `json:"approvals"`
	Rejection     *RejectionResponse    `json:"rejection,omitempty"`
	CreatedAt     string                `json:"created_at"`
}

// --- Interface ---

type RequestService interface {
	CreateRequest(ctx context.Context, actor Actor, req CreateRequestDTO) (RequestResponse, error)
	ListRequests(ctx context.Context, filter repository.RequestFilter) ([]RequestResponse, int64, error)
	GetRequest(ctx context.Context, id string) (RequestResponse, error)
	GetRequestModel(ctx context.Context, id string) (*model.Request, error)
	ApproveRequest(ctx context.Context, actor Actor, id string, req ApproveRequestDTO) (RequestResponse, error)
	RejectRequest(ctx context.Context, actor Actor, id string, req RejectRequestDTO) (RequestResponse, error)
	FinalizeRequest(ctx context.Context, actor Actor, id string, req FinalizeRequestDTO) (RequestResponse, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	itemRepo    repository.ItemRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	hub         EventBroadcaster
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	itemRepo repository.ItemRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub EventBroadcaster,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		itemRepo:    itemRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		hub:         hub,
	}
}

// --- Implementation ---

func (s *requestService) CreateRequest(ctx context.Context, actor Actor, req CreateRequestDTO) (RequestResponse, error) {
	request := model.Request{
		Type:        req.Type,
		Status:      workflow.StatusPending,
		RequestedBy: actor.uid(),
		Project:     req.Project,
		Location:    req.Location,
		TeamLeader:  req.TeamLeader,
		ISP:         req.ISP,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Validate every referenced item before touching the request tables
		type lineAudit struct {
			ItemID   string `json:"item_id"`
			ItemName string `json:"item_name"`
			Quantity int    `json:"quantity_requested"`
		}
		var auditLines []lineAudit
		itemIDs := make([]uuid.UUID, 0, len(req.Items))
		for _, lineReq := range req.Items {
			itemID, parseErr := uuid.Parse(lineReq.ItemID)
			if parseErr != nil {
				return fmt.Errorf("invalid item_id: %w", parseErr)
			}
			item, findErr := s.itemRepo.FindByID(txCtx, itemID)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return fmt.Errorf("item %w: %s", ErrNotFound, lineReq.ItemID)
				}
				return fmt.Errorf("failed to find item %s: %w", lineReq.ItemID, findErr)
			}
			itemIDs = append(itemIDs, itemID)
			auditLines = append(auditLines, lineAudit{
				ItemID:   lineReq.ItemID,
				ItemName: item.Name,
				Quantity: lineReq.QuantityRequested,
			})
		}

		code, codeErr := s.nextRequestCode(txCtx)
		if codeErr != nil {
			return fmt.Errorf("failed to generate request code: %w", codeErr)
		}
		request.RequestCode = code

		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		for i, lineReq := range req.Items {
			line := &model.RequestItem{
				RequestID:         request.ID,
				ItemID:            itemIDs[i],
				QuantityRequested: lineReq.QuantityRequested,
			}
			if err := s.requestRepo.CreateItem(txCtx, line); err != nil {
				return fmt.Errorf("failed to create request item: %w", err)
			}
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateRequest,
			request.ID.String(), request.RequestCode,
			map[string]interface{}{"type": req.Type, "project": req.Project, "items": auditLines})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reloadAndBroadcast(ctx, request.ID)
}

func (s *requestService) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]RequestResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	requests, total, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, toRequestResponse(&requests[i]))
	}

	return result, total, nil
}

func (s *requestService) GetRequest(ctx context.Context, id string) (RequestResponse, error) {
	request, err := s.GetRequestModel(ctx, id)
	if err != nil {
		return RequestResponse{}, err
	}
	return toRequestResponse(request), nil
}

// GetRequestModel returns the fully-loaded request row, used by the PDF form.
func (s *requestService) GetRequestModel(ctx context.Context, id string) (*model.Request, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}
	request, err := s.requestRepo.FindByIDWithRelations(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("request %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return request, nil
}

func (s *requestService) ApproveRequest(ctx context.Context, actor Actor, id string, req ApproveRequestDTO) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("request %w", ErrNotFound)
			}
			return fmt.Errorf("failed to load request: %w", findErr)
		}

		// A second approval on an approved request co-signs without a
		// status change; anything else must be a legal transition.
		coSign := request.Status == workflow.StatusApproved
		if !coSign {
			if trErr := workflow.Transition(request.Status, workflow.StatusApproved); trErr != nil {
				return trErr
			}
			request.Status = workflow.StatusApproved
			if err := s.requestRepo.Update(txCtx, request); err != nil {
				return fmt.Errorf("failed to update request: %w", err)
			}
			metrics.RequestTransitions.WithLabelValues(workflow.StatusApproved).Inc()
		}

		approval := &model.Approval{
			RequestID:    request.ID,
			ApproverName: req.ApproverName,
			Signature:    req.Signature,
			ApprovedBy:   actor.uid(),
		}
		if err := s.requestRepo.CreateApproval(txCtx, approval); err != nil {
			return fmt.Errorf("failed to record approval: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionApproveRequest,
			request.ID.String(), request.RequestCode,
			map[string]interface{}{"approver_name": req.ApproverName, "co_sign": coSign})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reloadAndBroadcast(ctx, requestID)
}

func (s *requestService) RejectRequest(ctx context.Context, actor Actor, id string, req RejectRequestDTO) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("request %w", ErrNotFound)
			}
			return fmt.Errorf("failed to load request: %w", findErr)
		}

		if trErr := workflow.Transition(request.Status, workflow.StatusRejected); trErr != nil {
			return trErr
		}
		request.Status = workflow.StatusRejected
		if err := s.requestRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		metrics.RequestTransitions.WithLabelValues(workflow.StatusRejected).Inc()

		rejection := &model.Rejection{
			RequestID:    request.ID,
			Reason:       req.Reason,
			RejectorName: req.RejectorName,
			RejectedBy:   actor.uid(),
		}
		if err := s.requestRepo.CreateRejection(txCtx, rejection); err != nil {
			return fmt.Errorf("failed to record rejection: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionRejectRequest,
			request.ID.String(), request.RequestCode,
			map[string]interface{}{"reason": req.Reason, "rejector_name": req.RejectorName})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reloadAndBroadcast(ctx, requestID)
}

// FinalizeRequest reconciles received/returned quantities against live stock
// and completes the request. All items are locked and validated before any
// stock is touched, so a failing line aborts with no partial mutation.
func (s *requestService) FinalizeRequest(ctx context.Context, actor Actor, id string, req FinalizeRequestDTO) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requestRepo.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("request %w", ErrNotFound)
			}
			return fmt.Errorf("failed to load request: %w", findErr)
		}

		if trErr := workflow.Transition(request.Status, workflow.StatusCompleted); trErr != nil {
			return trErr
		}

		loaded, loadErr := s.requestRepo.FindByIDWithRelations(txCtx, requestID)
		if loadErr != nil {
			return fmt.Errorf("failed to load request items: %w", loadErr)
		}

		knownLines := make(map[uuid.UUID]bool, len(loaded.Items))
		for _, reqItem := range loaded.Items {
			knownLines[reqItem.ID] = true
		}

		// Every submitted line must belong to this request; a stray id is a
		// client bug, not something to silently skip.
		dtoByLine := make(map[uuid.UUID]FinalizeItemDTO, len(req.Items))
		for _, line := range req.Items {
			lineID, parseErr := uuid.Parse(line.RequestItemID)
			if parseErr != nil {
				return fmt.Errorf("invalid request_item_id: %w", parseErr)
			}
			if !knownLines[lineID] {
				return fmt.Errorf("request item %s does not belong to this request", line.RequestItemID)
			}
			dtoByLine[lineID] = line
		}

		// Phase 1: lock every item row and build the validation input
		lines := make([]workflow.FinalizeLine, 0, len(loaded.Items))
		locked := make([]*model.Item, 0, len(loaded.Items))
		for _, reqItem := range loaded.Items {
			dto, ok := dtoByLine[reqItem.ID]
			if !ok {
				return fmt.Errorf("missing finalize line for item %s", reqItem.Item.Name)
			}

			item, lockErr := s.itemRepo.FindByIDForUpdate(txCtx, reqItem.ItemID)
			if lockErr != nil {
				return fmt.Errorf("failed to lock item %s: %w", reqItem.ItemID, lockErr)
			}

			lines = append(lines, workflow.FinalizeLine{
				ItemID:           item.ID,
				ItemName:         item.Name,
				QuantityReceived: derefOrZero(dto.QuantityReceived),
				QuantityReturned: derefOrZero(dto.QuantityReturned),
				CurrentStock:     item.Quantity,
			})
			locked = append(locked, item)
		}

		// Phase 2: validate everything before mutating anything
		if valErr := workflow.ValidateFinalize(request.Type, lines); valErr != nil {
			return valErr
		}

		// Phase 3: apply stock changes and record the ledger
		movementType := model.MovementRequestOut
		if request.Type == workflow.TypeItemReturn {
			movementType = model.MovementReturnIn
		}
		for i, line := range lines {
			delta := workflow.StockDelta(request.Type, line)
			stockAfter := locked[i].Quantity + delta

			if err := s.itemRepo.UpdateQuantity(txCtx, line.ItemID, stockAfter); err != nil {
				return fmt.Errorf("failed to update stock for %s: %w", line.ItemName, err)
			}
			movement := &model.StockMovement{
				ItemID:          line.ItemID,
				ReferenceID:     &request.ID,
				MovementType:    movementType,
				QuantityChanged: delta,
				StockAfter:      stockAfter,
			}
			if err := s.itemRepo.RecordMovement(txCtx, movement); err != nil {
				return fmt.Errorf("failed to record stock movement: %w", err)
			}
			metrics.StockMovements.WithLabelValues(movementType).Inc()
		}

		// Phase 4: persist reconciled quantities on the request lines
		for i := range loaded.Items {
			reqItem := loaded.Items[i]
			dto := dtoByLine[reqItem.ID]
			received := derefOrZero(dto.QuantityReceived)
			returned := derefOrZero(dto.QuantityReturned)
			reqItem.QuantityReceived = &received
			reqItem.QuantityReturned = &returned
			reqItem.Item = model.Item{} // avoid re-saving the association
			if err := s.requestRepo.UpdateItem(txCtx, &reqItem); err != nil {
				return fmt.Errorf("failed to update request item: %w", err)
			}
		}

		request.Status = workflow.StatusCompleted
		request.ReleaseBy = req.ReleaseBy
		if err := s.requestRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		metrics.RequestTransitions.WithLabelValues(workflow.StatusCompleted).Inc()

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionFinalizeRequest,
			request.ID.String(), request.RequestCode,
			map[string]interface{}{"release_by": req.ReleaseBy, "lines": len(lines)})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(websocket.EventStockChanged, map[string]interface{}{
			"request_id": requestID.String(),
		})
	}
	return s.reloadAndBroadcast(ctx, requestID)
}

// --- Helpers ---

func (s *requestService) nextRequestCode(ctx context.Context) (string, error) {
	prefix := "REQ-" + time.Now().Format("20060102") + "-"
	count, err := s.requestRepo.CountByRequestCodePrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	// The unique index on request_code catches concurrent duplicates; the
	// enclosing transaction then rolls back and the client retries.
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (s *requestService) reloadAndBroadcast(ctx context.Context, id uuid.UUID) (RequestResponse, error) {
	request, err := s.requestRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("failed to reload request: %w", err)
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(websocket.EventRequestStatus, map[string]interface{}{
			"request_id":   request.ID.String(),
			"request_code": request.RequestCode,
			"status":       request.Status,
		})
	}
	return toRequestResponse(request), nil
}

func derefOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func toRequestResponse(r *model.Request) RequestResponse {
	resp := RequestResponse{
		ID:          r.ID.String(),
		RequestCode: r.RequestCode,
		Type:        r.Type,
		Status:      r.Status,
		Project:     r.Project,
		Location:    r.Location,
		TeamLeader:  r.TeamLeader,
		ISP:         r.ISP,
		ReleaseBy:   r.ReleaseBy,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}

	resp.Items = make([]RequestItemResponse, 0, len(r.Items))
	for _, line := range r.Items {
		resp.Items = append(resp.Items, RequestItemResponse{
			ID:                line.ID.String(),
			ItemID:            line.ItemID.String(),
			ItemName:          line.Item.Name,
			ItemSKU:           line.Item.SKU,
			QuantityRequested: line.QuantityRequested,
			QuantityReceived:  line.QuantityReceived,
			QuantityReturned:  line.QuantityReturned,
		})
	}

	resp.Approvals = make([]ApprovalResponse, 0, len(r.Approvals))
	for _, approval := range r.Approvals {
		resp.Approvals = append(resp.Approvals, ApprovalResponse{
			ID:           approval.ID.String(),
			ApproverName: approval.ApproverName,
			Signature:    approval.Signature,
			CreatedAt:    approval.CreatedAt.Format(time.RFC3339),
		})
	}

	if r.Rejection != nil {
		resp.Rejection = &RejectionResponse{
			Reason:       r.Rejection.Reason,
			RejectorName: r.Rejection.RejectorName,
			CreatedAt:    r.Rejection.CreatedAt.Format(time.RFC3339),
		}
	}

	return resp
}
