package dto

import (
	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
)

type CreateRoleRequest struct {
	Name string `json:"name" binding:"required,min=2,max=50"`
}

type UpdateRoleRequest struct {
	Name string `json:"name" binding:"required,min=2,max=50"`
}

type PermissionIDsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required,min=1,dive,uuid"`
}

type RoleResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Permissions []entity.Permission `json:"permissions"`
}
