package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/middleware"
	"stockflow/internal/model"
	"stockflow/internal/service"
	"stockflow/pkg/response"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/dashboard-stats", middleware.RequireRole(model.AllRoles...), h.GetStats)
	}
}

// GetStats returns headline counts and the current inventory valuation
// @Summary      Dashboard statistics
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.DashboardStats}
// @Router       /api/dashboard-stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to compute dashboard stats: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
