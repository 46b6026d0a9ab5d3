package permission

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	permissionDto "github.com/edulab-vn/topic-management-api/internal/modules/permission/dto"
	repo "github.com/edulab-vn/topic-management-api/internal/modules/permission/repository"
	"github.com/edulab-vn/topic-management-api/pkg/apperror"
)

type Service interface {
	Create(ctx context.Context, req permissionDto.CreatePermissionRequest) (*entity.Permission, error)
	FindAll(ctx context.Context) ([]entity.Permission, error)
	FindOne(ctx context.Context, id uuid.UUID) (*permissionDto.PermissionResponse, error)
	Update(ctx context.Context, id uuid.UUID, req permissionDto.UpdatePermissionRequest) (*entity.Permission, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type service struct {
	permissionRepo repo.Repository
}

func NewService(permissionRepo repo.Repository) Service {
	return &service{permissionRepo: permissionRepo}
}

func (s *service) Create(ctx context.Context, req permissionDto.CreatePermissionRequest) (*entity.Permission, error) {
	if existing, err := s.permissionRepo.FindByName(ctx, req.Name); err == nil && existing != nil {
		return nil, fmt.Errorf("permission name already exists: %w", apperror.ErrValidation)
	}

	permission := &entity.Permission{Name: req.Name}
	if err := s.permissionRepo.Create(ctx, permission); err != nil {
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	return permission, nil
}

func (s *service) FindAll(ctx context.Context) ([]entity.Permission, error) {
	return s.permissionRepo.FindAll(ctx)
}

func (s *service) FindOne(ctx context.Context, id uuid.UUID) (*permissionDto.PermissionResponse, error) {
	permission, err := s.permissionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("permission not found: %w", apperror.ErrNotFound)
	}

	roles, err := s.permissionRepo.RolesGranted(ctx, id)
	if err != nil {
		return nil, err
	}

	return &permissionDto.PermissionResponse{
		ID:    permission.ID,
		Name:  permission.Name,
		Roles: roles,
	}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req permissionDto.UpdatePermissionRequest) (*entity.Permission, error) {
	permission, err := s.permissionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("permission not found: %w", apperror.ErrNotFound)
	}

	if req.Name != permission.Name {
		if existing, err := s.permissionRepo.FindByName(ctx, req.Name); err == nil && existing != nil && existing.ID != id {
			return nil, fmt.Errorf("permission name already exists: %w", apperror.ErrValidation)
		}
		permission.Name = req.Name
	}

	if err := s.permissionRepo.Update(ctx, permission); err != nil {
		return nil, fmt.Errorf("failed to update permission: %w", err)
	}

	return permission, nil
}

// Remove deletes a permission. Deletable only while no role references it.
func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.permissionRepo.FindByID(ctx, id); err != nil {
		return fmt.Errorf("permission not found: %w", apperror.ErrNotFound)
	}

	refs, err := s.permissionRepo.CountRoleRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("cannot delete permission as it is assigned to roles: %w", apperror.ErrValidation)
	}

	return s.permissionRepo.Delete(ctx, id)
}
