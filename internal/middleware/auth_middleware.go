package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/metagameshop/shop-backend/internal/config"
	"github.com/metagameshop/shop-backend/internal/models"
	tokens "github.com/metagameshop/shop-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

const (
	// ActorKey holds the authenticated *models.Actor on the gin context.
	ActorKey = "actor"

	AdminKeyHeader  = "X-Admin-Key"
	AdminNameHeader = "X-Admin-Name"
)

// ActorFromContext returns the caller set by AdminAuthMiddleware, or nil.
func ActorFromContext(c *gin.Context) *models.Actor {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*models.Actor)
	return actor
}

// AdminAuthMiddleware authenticates admin routes with a static API key
// (plain or bcrypt hash) or an HS256 bearer token carrying role admin.
// When nothing is configured every caller is treated as admin.
func AdminAuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	if !cfg.AdminAuthEnabled() {
		open := &models.Actor{ID: "open-admin", Name: "admin", Role: models.RoleAdmin}
		return func(c *gin.Context) {
			c.Set(ActorKey, open)
			c.Next()
		}
	}

	var tokenService *tokens.Service
	if cfg.JWTSecret != "" {
		tokenService = tokens.NewService(cfg.JWTSecret)
	}
	keyConfigured := cfg.AdminAPIKey != "" || cfg.AdminAPIKeyHash != ""

	return func(c *gin.Context) {
		if key := c.GetHeader(AdminKeyHeader); key != "" && keyConfigured {
			if !apiKeyMatches(cfg, key) {
				slog.Warn("Admin API key rejected", "ip", c.ClientIP(), "path", c.Request.URL.Path)
				abort(c, http.StatusUnauthorized, "Invalid admin key")
				return
			}
			name := strings.TrimSpace(c.GetHeader(AdminNameHeader))
			if name == "" {
				name = "admin"
			}
			c.Set(ActorKey, &models.Actor{ID: "api-key", Name: name, Role: models.RoleAdmin})
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if tokenService == nil || authHeader == "" {
			abort(c, http.StatusUnauthorized, "Admin credentials are required")
			return
		}

		const bearerSchema = "Bearer "
		if !strings.HasPrefix(authHeader, bearerSchema) {
			abort(c, http.StatusUnauthorized, "Authorization header must start with Bearer")
			return
		}

		claims, err := tokenService.ValidateToken(strings.TrimSpace(authHeader[len(bearerSchema):]))
		if err != nil {
			slog.Warn("Admin token rejected", "ip", c.ClientIP(), "error", err)
			if errors.Is(err, jwt.ErrTokenExpired) {
				abort(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abort(c, http.StatusUnauthorized, "Invalid token")
			}
			return
		}
		if claims.Role != models.RoleAdmin {
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}

		c.Set(ActorKey, &models.Actor{ID: claims.UserID, Name: claims.Name, Role: claims.Role})
		c.Next()
	}
}

func apiKeyMatches(cfg config.AuthConfig, key string) bool {
	if cfg.AdminAPIKeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.AdminAPIKeyHash), []byte(key)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(cfg.AdminAPIKey), []byte(key)) == 1
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
