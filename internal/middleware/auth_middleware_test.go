package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/internal/config"
	"github.com/metagameshop/shop-backend/internal/models"
	tokens "github.com/metagameshop/shop-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupTestRouter(cfg config.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AdminAuthMiddleware(cfg))
	router.GET("/admin/test", func(c *gin.Context) {
		actor := ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "name": actor.Name, "role": actor.Role})
	})
	return router
}

func doRequest(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/test", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAdminAuth_OpenWhenUnconfigured(t *testing.T) {
	w := doRequest(setupTestRouter(config.AuthConfig{}), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

func TestAdminAuth_PlainAPIKey(t *testing.T) {
	router := setupTestRouter(config.AuthConfig{AdminAPIKey: "letmein"})

	w := doRequest(router, map[string]string{AdminKeyHeader: "letmein", AdminNameHeader: "Rafi"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Rafi"`)

	w = doRequest(router, map[string]string{AdminKeyHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	w = doRequest(router, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_HashedAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	router := setupTestRouter(config.AuthConfig{AdminAPIKeyHash: string(hash)})

	assert.Equal(t, http.StatusOK, doRequest(router, map[string]string{AdminKeyHeader: "letmein"}).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, map[string]string{AdminKeyHeader: "letmeout"}).Code)
}

func TestAdminAuth_BearerToken(t *testing.T) {
	service := tokens.NewService("test-secret-key")
	router := setupTestRouter(config.AuthConfig{JWTSecret: "test-secret-key"})

	token, err := service.GenerateToken("admin-7", "Nadia", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	w := doRequest(router, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"admin-7"`)

	userToken, err := service.GenerateToken("u1", "", "user", time.Hour)
	require.NoError(t, err)
	w = doRequest(router, map[string]string{"Authorization": "Bearer " + userToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, map[string]string{"Authorization": "Token " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, map[string]string{"Authorization": "Bearer invalid-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// an API key header is ignored when no key is configured
	w = doRequest(router, map[string]string{AdminKeyHeader: "anything"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
