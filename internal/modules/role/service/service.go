package role

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	roleDto "github.com/edulab-vn/topic-management-api/internal/modules/role/dto"
	permissionRepo "github.com/edulab-vn/topic-management-api/internal/modules/permission/repository"
	repo "github.com/edulab-vn/topic-management-api/internal/modules/role/repository"
	"github.com/edulab-vn/topic-management-api/pkg/apperror"
	"github.com/edulab-vn/topic-management-api/pkg/database"
)

type Service interface {
	Create(ctx context.Context, req roleDto.CreateRoleRequest) (*entity.Role, error)
	FindAll(ctx context.Context) ([]entity.Role, error)
	FindOne(ctx context.Context, id uuid.UUID) (*roleDto.RoleResponse, error)
	Update(ctx context.Context, id uuid.UUID, req roleDto.UpdateRoleRequest) (*entity.Role, error)
	Remove(ctx context.Context, id uuid.UUID) error
	AssignPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) (*roleDto.RoleResponse, error)
	RemovePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) (*roleDto.RoleResponse, error)

	// HasPermission and RoleName implement middleware.PermissionSource.
	HasPermission(ctx context.Context, roleID uuid.UUID, permission string) (bool, error)
	RoleName(ctx context.Context, roleID uuid.UUID) (string, error)
}

type service struct {
	roleRepo       repo.Repository
	permissionRepo permissionRepo.Repository
}

func NewService(roleRepo repo.Repository, permissionRepo permissionRepo.Repository) Service {
	return &service{
		roleRepo:       roleRepo,
		permissionRepo: permissionRepo,
	}
}

func (s *service) Create(ctx context.Context, req roleDto.CreateRoleRequest) (*entity.Role, error) {
	if existing, err := s.roleRepo.FindByName(ctx, req.Name); err == nil && existing != nil {
		return nil, fmt.Errorf("role name already exists: %w", apperror.ErrValidation)
	}

	role := &entity.Role{Name: req.Name}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return role, nil
}

func (s *service) FindAll(ctx context.Context) ([]entity.Role, error) {
	return s.roleRepo.FindAll(ctx)
}

func (s *service) FindOne(ctx context.Context, id uuid.UUID) (*roleDto.RoleResponse, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", apperror.ErrNotFound)
	}

	return buildRoleResponse(role), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req roleDto.UpdateRoleRequest) (*entity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", apperror.ErrNotFound)
	}

	if req.Name != role.Name {
		if existing, err := s.roleRepo.FindByName(ctx, req.Name); err == nil && existing != nil && existing.ID != id {
			return nil, fmt.Errorf("role name already exists: %w", apperror.ErrValidation)
		}
		role.Name = req.Name
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return role, nil
}

// Remove deletes a role. Refused while any user still carries it; the role's
// permission grants are removed first.
func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.roleRepo.FindByID(ctx, id); err != nil {
		return fmt.Errorf("role not found: %w", apperror.ErrNotFound)
	}

	users, err := s.roleRepo.CountUsersWithRole(ctx, id)
	if err != nil {
		return err
	}
	if users > 0 {
		return fmt.Errorf("cannot delete role as it is assigned to users: %w", apperror.ErrValidation)
	}

	return s.roleRepo.Transaction(ctx, database.TxReadOnly, func(ctx context.Context, r repo.Repository) error {
		if err := r.DeleteAllPermissions(ctx, id); err != nil {
			return err
		}
		return r.Delete(ctx, id)
	})
}

func (s *service) AssignPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) (*roleDto.RoleResponse, error) {
	if _, err := s.roleRepo.FindByID(ctx, roleID); err != nil {
		return nil, fmt.Errorf("role not found: %w", apperror.ErrNotFound)
	}

	if err := s.assertPermissionsExist(ctx, permissionIDs); err != nil {
		return nil, err
	}

	err := s.roleRepo.Transaction(ctx, database.TxReadOnly, func(ctx context.Context, r repo.Repository) error {
		existing, err := r.PermissionIDs(ctx, roleID)
		if err != nil {
			return err
		}

		existingSet := make(map[uuid.UUID]bool, len(existing))
		for _, id := range existing {
			existingSet[id] = true
		}

		// Only insert grants the role does not already hold.
		var toAdd []uuid.UUID
		for _, id := range permissionIDs {
			if !existingSet[id] {
				toAdd = append(toAdd, id)
			}
		}

		return r.AddPermissions(ctx, roleID, toAdd)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign permissions: %w", err)
	}

	return s.FindOne(ctx, roleID)
}

func (s *service) RemovePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) (*roleDto.RoleResponse, error) {
	if _, err := s.roleRepo.FindByID(ctx, roleID); err != nil {
		return nil, fmt.Errorf("role not found: %w", apperror.ErrNotFound)
	}

	if err := s.assertPermissionsExist(ctx, permissionIDs); err != nil {
		return nil, err
	}

	if err := s.roleRepo.RemovePermissions(ctx, roleID, permissionIDs); err != nil {
		return nil, fmt.Errorf("failed to remove permissions: %w", err)
	}

	return s.FindOne(ctx, roleID)
}

func (s *service) HasPermission(ctx context.Context, roleID uuid.UUID, permission string) (bool, error) {
	return s.roleRepo.HasPermission(ctx, roleID, permission)
}

func (s *service) RoleName(ctx context.Context, roleID uuid.UUID) (string, error) {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return "", fmt.Errorf("role not found: %w", apperror.ErrUnauthorized)
	}
	return role.Name, nil
}

func (s *service) assertPermissionsExist(ctx context.Context, permissionIDs []uuid.UUID) error {
	permissions, err := s.permissionRepo.FindByIDs(ctx, permissionIDs)
	if err != nil {
		return err
	}
	if len(permissions) != len(permissionIDs) {
		return fmt.Errorf("one or more permissions not found: %w", apperror.ErrValidation)
	}
	return nil
}

func buildRoleResponse(role *entity.Role) *roleDto.RoleResponse {
	permissions := make([]entity.Permission, 0, len(role.RolePermissions))
	for _, rp := range role.RolePermissions {
		permissions = append(permissions, rp.Permission)
	}

	return &roleDto.RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Permissions: permissions,
	}
}
