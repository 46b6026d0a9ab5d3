package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	"github.com/edulab-vn/topic-management-api/pkg/response"
	"github.com/edulab-vn/topic-management-api/pkg/token"
)

// PermissionSource answers whether a role currently holds a named permission.
// Resolved fresh per request so a revoked grant takes effect immediately.
type PermissionSource interface {
	HasPermission(ctx context.Context, roleID uuid.UUID, permission string) (bool, error)
	RoleName(ctx context.Context, roleID uuid.UUID) (string, error)
}

type AuthMiddleware struct {
	tokens      *token.Service
	permissions PermissionSource
}

func NewAuthMiddleware(tokens *token.Service, permissions PermissionSource) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:      tokens,
		permissions: permissions,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		identity, err := m.tokens.VerifyAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(response.ContextUserIDKey, identity.ID.String())
		c.Set(response.ContextRoleIDKey, identity.RoleID.String())
		c.Next()
	}
}

// RequireAdmin gates the role/permission management routes, which have no
// seeded permission name of their own.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleID, err := response.GetRoleID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		name, err := m.permissions.RoleName(c.Request.Context(), roleID)
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		if name != entity.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequirePermission is the coarse authorization gate: the permission name is a
// static attribute of the route, checked against the caller's role on every
// request. Finer per-resource checks (membership, ownership) live in the
// services.
func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleID, err := response.GetRoleID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		allowed, err := m.permissions.HasPermission(c.Request.Context(), roleID, permission)
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission"})
			c.Abort()
			return
		}

		c.Next()
	}
}
