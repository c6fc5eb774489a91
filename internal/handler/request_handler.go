package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/middleware"
	"stockflow/internal/model"
	"stockflow/internal/printing"
	"stockflow/internal/repository"
	"stockflow/internal/service"
	"stockflow/pkg/pagination"
	"stockflow/pkg/response"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/requests", middleware.RequireRole(model.AllRoles...), h.ListRequests)
		api.GET("/requests/:id", middleware.RequireRole(model.AllRoles...), h.GetRequest)
		api.GET("/requests/:id/form", middleware.RequireRole(model.AllRoles...), h.GetRequestForm)
		api.POST("/requests", middleware.RequireRole(model.AllRoles...), h.CreateRequest)
		api.PUT("/requests/:id/approve", middleware.RequireRole(model.RoleAdmin, model.RoleApprover), h.ApproveRequest)
		api.PUT("/requests/:id/reject", middleware.RequireRole(model.RoleAdmin, model.RoleApprover), h.RejectRequest)
		api.PUT("/requests/:id/finalize", middleware.RequireRole(model.RoleAdmin, model.RoleIssuer), h.FinalizeRequest)
	}
}

// ListRequests returns a paginated, filterable request list
// @Summary      List requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Param        status  query  string  false  "Filter by status (pending, approved, completed, rejected)"
// @Param        type    query  string  false  "Filter by type (material_request, item_return)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.RequestFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve requests: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetRequest returns one request with items, approvals, and rejection
// @Summary      Get request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	request, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// GetRequestForm renders the request as a printable PDF form
// @Summary      Request PDF form
// @Tags         requests
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id   path  string  true  "Request ID"
// @Success      200  {file}  binary
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id}/form [get]
func (h *RequestHandler) GetRequestForm(c *gin.Context) {
	request, err := h.requestService.GetRequestModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := printing.RenderRequestForm(&buf, request); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to render form: "+err.Error()))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+request.RequestCode+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// CreateRequest opens a new material request or item return
// @Summary      Create request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.CreateRequest(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, request))
}

// ApproveRequest approves a pending request or co-signs an approved one
// @Summary      Approve request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      service.ApproveRequestDTO  true  "Approval Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/approve [put]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	var req service.ApproveRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.ApproveRequest(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// RejectRequest rejects a pending or approved request with a reason
// @Summary      Reject request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.RejectRequestDTO  true  "Rejection Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [put]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	var req service.RejectRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.RejectRequest(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// FinalizeRequest reconciles quantities against stock and completes the request
// @Summary      Finalize request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Request ID"
// @Param        payload  body      service.FinalizeRequestDTO  true  "Finalize Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/finalize [put]
func (h *RequestHandler) FinalizeRequest(c *gin.Context) {
	var req service.FinalizeRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.FinalizeRequest(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}
