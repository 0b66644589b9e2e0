package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"vip-payment-api/internal/config"
	"vip-payment-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTest(t *testing.T) {
	t.Helper()
	require.NoError(t, config.InitConfig())
	gin.SetMode(gin.TestMode)
}

func TestTokenRoundtrip(t *testing.T) {
	setupAuthTest(t)

	token, err := GenerateToken(42, models.RoleUser, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	setupAuthTest(t)

	token, err := GenerateToken(42, models.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	setupAuthTest(t)

	_, err := ParseToken("not.a.token")
	assert.Error(t, err)
}

func authedRequest(t *testing.T, handler gin.HandlerFunc, token string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.GET("/guarded", handler, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": CallerID(c), "admin": IsAdmin(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	setupAuthTest(t)

	w := authedRequest(t, RequireAuth(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := GenerateToken(7, models.RoleUser, time.Hour)
	require.NoError(t, err)
	w = authedRequest(t, RequireAuth(), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"caller":7`)
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	setupAuthTest(t)

	w := authedRequest(t, OptionalAuth(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"caller":0`)
}

func TestRequirePermission(t *testing.T) {
	setupAuthTest(t)

	userToken, err := GenerateToken(7, models.RoleUser, time.Hour)
	require.NoError(t, err)
	adminToken, err := GenerateToken(1, models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	w := authedRequest(t, RequirePermission("transactions:manage"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = authedRequest(t, RequirePermission("transactions:manage"), userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = authedRequest(t, RequirePermission("transactions:manage"), adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin":true`)
}
