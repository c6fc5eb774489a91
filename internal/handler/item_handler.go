package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stockflow/internal/middleware"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/internal/service"
	"stockflow/pkg/pagination"
	"stockflow/pkg/response"
)

type ItemHandler struct {
	itemService service.ItemService
}

func NewItemHandler(itemService service.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

func (h *ItemHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/items", middleware.RequireRole(model.AllRoles...), h.GetItems)
		api.GET("/items/:id", middleware.RequireRole(model.AllRoles...), h.GetItem)
		api.GET("/items/:id/movements", middleware.RequireRole(model.AllRoles...), h.GetMovements)
		api.POST("/items", middleware.RequireRole(model.RoleAdmin), h.CreateItem)
		api.PUT("/items/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateItem)
		api.DELETE("/items/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteItem)
		api.POST("/items/:id/adjust", middleware.RequireRole(model.RoleAdmin, model.RoleIssuer), h.AdjustStock)

		api.GET("/items-out", middleware.RequireRole(model.AllRoles...), h.ListIssuances)
		api.POST("/items-out", middleware.RequireRole(model.RoleAdmin, model.RoleIssuer), h.IssueItem)

		api.GET("/low-stock", middleware.RequireRole(model.AllRoles...), h.GetLowStock)
	}
}

// GetItems returns a paginated, filterable item list
// @Summary      List items
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Param        search       query  string  false  "Search by name or SKU"
// @Param        category_id  query  string  false  "Filter by category"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/items [get]
func (h *ItemHandler) GetItems(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.ItemFilter{
		Search: c.Query("search"),
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid category_id"))
			return
		}
		filter.CategoryID = &categoryID
	}

	items, total, err := h.itemService.GetItems(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve items: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetItem returns one item by ID
// @Summary      Get item
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response{data=service.ItemResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/items/{id} [get]
func (h *ItemHandler) GetItem(c *gin.Context) {
	item, err := h.itemService.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// GetMovements returns the stock ledger for one item
// @Summary      Item stock movements
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string  true   "Item ID"
// @Param        page   query  int     false  "Page number (default 1)"
// @Param        limit  query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/items/{id}/movements [get]
func (h *ItemHandler) GetMovements(c *gin.Context) {
	params := pagination.Parse(c)

	movements, total, err := h.itemService.ListMovements(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// CreateItem creates an inventory item
// @Summary      Create item
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateItemRequest  true  "Create Item Payload"
// @Success      201      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/items [post]
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.itemService.CreateItem(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// UpdateItem updates item metadata (not stock; use adjust)
// @Summary      Update item
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Item ID"
// @Param        payload  body      service.UpdateItemRequest  true  "Update Item Payload"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/items/{id} [put]
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.itemService.UpdateItem(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DeleteItem soft deletes an item
// @Summary      Delete item
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/items/{id} [delete]
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	if err := h.itemService.DeleteItem(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Item deleted successfully"))
}

// AdjustStock applies a signed manual stock correction
// @Summary      Adjust stock
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Item ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Adjust Stock Payload"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/items/{id}/adjust [post]
func (h *ItemHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.itemService.AdjustStock(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListIssuances returns the items-out log
// @Summary      List issuances
// @Tags         items-out
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/items-out [get]
func (h *ItemHandler) ListIssuances(c *gin.Context) {
	params := pagination.Parse(c)

	issuances, total, err := h.itemService.ListIssuances(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve issuances: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"issuances": issuances,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// IssueItem hands stock out directly, outside the request workflow
// @Summary      Issue item
// @Tags         items-out
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.IssueItemRequest  true  "Issue Item Payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/items-out [post]
func (h *ItemHandler) IssueItem(c *gin.Context) {
	var req service.IssueItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.itemService.IssueItem(c.Request.Context(), actorFrom(c), req); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, "Item issued successfully"))
}

// GetLowStock returns every item at or below its threshold
// @Summary      Low stock items
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ItemResponse}
// @Router       /api/low-stock [get]
func (h *ItemHandler) GetLowStock(c *gin.Context) {
	items, err := h.itemService.ListLowStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve low stock items: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}
