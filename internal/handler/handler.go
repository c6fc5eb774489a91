// Package handler exposes the HTTP surface. Each handler binds request DTOs,
// delegates to its service, and wraps results in the standard response
// envelope. Authorization is enforced per route via middleware.RequireRole.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/service"
	"stockflow/internal/workflow"
	"stockflow/pkg/response"
)

// actorFrom builds the audit actor from the JWT claims set by RequireRole and
// the client IP.
func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{UserID: c.GetString("userID"), IP: c.ClientIP()}
}

// fail maps service errors onto HTTP statuses: illegal workflow transitions
// become 409, missing rows 404, everything else 400.
func fail(c *gin.Context, err error) {
	var trErr *workflow.TransitionError
	switch {
	case errors.As(err, &trErr):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}
