package response

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/pkg/apperror"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleIDKey = "role_id"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	return getUUID(c, ContextUserIDKey)
}

// GetRoleID retrieves the authenticated user's role ID from the context
func GetRoleID(c *gin.Context) (uuid.UUID, error) {
	return getUUID(c, ContextRoleIDKey)
}

func getUUID(c *gin.Context, key string) (uuid.UUID, error) {
	raw, exists := c.Get(key)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	id, err := uuid.Parse(raw.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
