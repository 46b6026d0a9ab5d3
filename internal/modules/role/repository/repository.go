package role

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	"github.com/edulab-vn/topic-management-api/pkg/database"
)

type Repository interface {
	Create(ctx context.Context, role *entity.Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Role, error)
	FindByName(ctx context.Context, name string) (*entity.Role, error)
	FindAll(ctx context.Context) ([]entity.Role, error)
	Update(ctx context.Context, role *entity.Role) error
	Delete(ctx context.Context, id uuid.UUID) error

	CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error)
	PermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	AddPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
	RemovePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
	DeleteAllPermissions(ctx context.Context, roleID uuid.UUID) error

	// HasPermission joins RolePermission to Permission names. Uncached on
	// purpose: grants and revocations must be visible on the next request.
	HasPermission(ctx context.Context, roleID uuid.UUID, permission string) (bool, error)

	Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r Repository) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, role *entity.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Role, error) {
	var role entity.Role
	if err := r.db.WithContext(ctx).
		Preload("RolePermissions.Permission").
		Where("id = ?", id).
		First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*entity.Role, error) {
	var role entity.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repository) FindAll(ctx context.Context) ([]entity.Role, error) {
	var roles []entity.Role
	if err := r.db.WithContext(ctx).Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repository) Update(ctx context.Context, role *entity.Role) error {
	return r.db.WithContext(ctx).Save(role).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Role{}, "id = ?", id).Error
}

func (r *repository) CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}

func (r *repository) PermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.RolePermission{}).
		Where("role_id = ?", roleID).
		Pluck("permission_id", &ids).Error
	return ids, err
}

func (r *repository) AddPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	rows := make([]entity.RolePermission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		rows = append(rows, entity.RolePermission{RoleID: roleID, PermissionID: pid})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) RemovePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id IN ?", roleID, permissionIDs).
		Delete(&entity.RolePermission{}).Error
}

func (r *repository) DeleteAllPermissions(ctx context.Context, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Delete(&entity.RolePermission{}).Error
}

func (r *repository) HasPermission(ctx context.Context, roleID uuid.UUID, permission string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id = ? AND permissions.name = ?", roleID, permission).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r Repository) error) error {
	return database.RunInTx(ctx, r.db, opts, func(ctx context.Context, tx *gorm.DB) error {
		return fn(ctx, &repository{db: tx})
	})
}
