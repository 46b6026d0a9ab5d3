package dto

import (
	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type AuthResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	TokenType    string        `json:"tokenType"`
	User         *UserResponse `json:"user"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	RoleID   string `json:"roleId" binding:"required,uuid"`
}

// BulkRegisterRequest carries already-parsed user rows. Parsing spreadsheets
// into rows happens on the client side.
type BulkRegisterRequest struct {
	Users []RegisterRequest `json:"users" binding:"required,min=1,dive"`
}

// RowError reports why one row of a bulk registration was rejected. Row is
// the zero-based index into the submitted slice.
type RowError struct {
	Row     int    `json:"row"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type UserResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	RoleID uuid.UUID `json:"roleId"`
	Role   string    `json:"role,omitempty"`
}

func NewUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		RoleID: user.RoleID,
		Role:   user.Role.Name,
	}
}
