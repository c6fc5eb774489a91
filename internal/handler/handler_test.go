package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"stockflow/internal/service"
	"stockflow/internal/workflow"
)

func TestFailMapsServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{
			name: "illegal transition",
			err:  &workflow.TransitionError{From: workflow.StatusCompleted, To: workflow.StatusRejected},
			code: http.StatusConflict,
		},
		{
			name: "missing row",
			err:  fmt.Errorf("request %w", service.ErrNotFound),
			code: http.StatusNotFound,
		},
		{
			name: "wrapped missing row",
			err:  fmt.Errorf("load failed: %w", fmt.Errorf("item %w", service.ErrNotFound)),
			code: http.StatusNotFound,
		},
		{
			name: "validation error",
			err:  errors.New("invalid item_id"),
			code: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			fail(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"error"`)
		})
	}
}
