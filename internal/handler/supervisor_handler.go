package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/middleware"
	"stockflow/internal/model"
	"stockflow/internal/service"
	"stockflow/pkg/pagination"
	"stockflow/pkg/response"
)

type SupervisorHandler struct {
	supervisorService service.SupervisorService
}

func NewSupervisorHandler(supervisorService service.SupervisorService) *SupervisorHandler {
	return &SupervisorHandler{supervisorService: supervisorService}
}

func (h *SupervisorHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/supervisors", middleware.RequireRole(model.RoleAdmin), h.ListSupervisors)
		api.POST("/supervisors", middleware.RequireRole(model.RoleAdmin), h.CreateSupervisor)
		api.PUT("/supervisors/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateSupervisor)
		api.DELETE("/supervisors/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteSupervisor)
	}
}

// ListSupervisors returns the alert recipient list
// @Summary      List supervisors
// @Tags         supervisors
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/supervisors [get]
func (h *SupervisorHandler) ListSupervisors(c *gin.Context) {
	params := pagination.Parse(c)

	supervisors, total, err := h.supervisorService.ListSupervisors(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve supervisors: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"supervisors": supervisors,
		"total":       total,
		"page":        params.Page,
		"limit":       params.Limit,
	}))
}

// CreateSupervisor adds a low-stock alert recipient
// @Summary      Create supervisor
// @Tags         supervisors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SupervisorRequest  true  "Supervisor Payload"
// @Success      201      {object}  response.Response{data=model.Supervisor}
// @Failure      400      {object}  response.Response
// @Router       /api/supervisors [post]
func (h *SupervisorHandler) CreateSupervisor(c *gin.Context) {
	var req service.SupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supervisor, err := h.supervisorService.CreateSupervisor(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, supervisor))
}

// UpdateSupervisor updates a recipient's details or active flag
// @Summary      Update supervisor
// @Tags         supervisors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Supervisor ID"
// @Param        payload  body      service.SupervisorRequest  true  "Supervisor Payload"
// @Success      200      {object}  response.Response{data=model.Supervisor}
// @Failure      400      {object}  response.Response
// @Router       /api/supervisors/{id} [put]
func (h *SupervisorHandler) UpdateSupervisor(c *gin.Context) {
	var req service.SupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supervisor, err := h.supervisorService.UpdateSupervisor(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supervisor))
}

// DeleteSupervisor removes a recipient
// @Summary      Delete supervisor
// @Tags         supervisors
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Supervisor ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/supervisors/{id} [delete]
func (h *SupervisorHandler) DeleteSupervisor(c *gin.Context) {
	if err := h.supervisorService.DeleteSupervisor(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Supervisor deleted successfully"))
}
