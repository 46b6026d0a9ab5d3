package dto

import (
	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
)

type CreatePermissionRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

type UpdatePermissionRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

type PermissionResponse struct {
	ID    uuid.UUID     `json:"id"`
	Name  string        `json:"name"`
	Roles []entity.Role `json:"roles"`
}
