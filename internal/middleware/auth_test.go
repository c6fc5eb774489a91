package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "11111111-1111-1111-1111-111111111111",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func protectedRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireRole(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})
	return router
}

func TestRequireRoleUsesInstalledSecret(t *testing.T) {
	SetJWTSecret("operator-secret")
	t.Cleanup(func() { SetJWTSecret("default_super_secret_key") })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "operator-secret", "admin"))
	w := httptest.NewRecorder()
	protectedRouter("admin").ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", w.Body.String())
}

func TestRequireRoleRejectsForeignSecret(t *testing.T) {
	SetJWTSecret("operator-secret")
	t.Cleanup(func() { SetJWTSecret("default_super_secret_key") })

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "some-other-secret", "admin"))
	w := httptest.NewRecorder()
	protectedRouter("admin").ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleDeniesDisallowedRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "default_super_secret_key", "staff"))
	w := httptest.NewRecorder()
	protectedRouter("admin", "approver").ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	protectedRouter("admin").ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
