package role

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	roleDto "github.com/edulab-vn/topic-management-api/internal/modules/role/dto"
	repo "github.com/edulab-vn/topic-management-api/internal/modules/role/repository"
	"github.com/edulab-vn/topic-management-api/pkg/apperror"
	"github.com/edulab-vn/topic-management-api/pkg/database"
)

var errNotFound = errors.New("record not found")

type fakeRoleRepo struct {
	roles      map[uuid.UUID]*entity.Role
	grants     map[uuid.UUID][]uuid.UUID
	userCounts map[uuid.UUID]int64

	added   [][]uuid.UUID
	removed [][]uuid.UUID
	deleted []uuid.UUID
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles:      map[uuid.UUID]*entity.Role{},
		grants:     map[uuid.UUID][]uuid.UUID{},
		userCounts: map[uuid.UUID]int64{},
	}
}

func (f *fakeRoleRepo) Create(ctx context.Context, role *entity.Role) error {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoleRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, errNotFound
	}
	return role, nil
}

func (f *fakeRoleRepo) FindByName(ctx context.Context, name string) (*entity.Role, error) {
	for _, role := range f.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeRoleRepo) FindAll(ctx context.Context) ([]entity.Role, error) {
	var out []entity.Role
	for _, role := range f.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (f *fakeRoleRepo) Update(ctx context.Context, role *entity.Role) error {
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.roles, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRoleRepo) CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	return f.userCounts[roleID], nil
}

func (f *fakeRoleRepo) PermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	return f.grants[roleID], nil
}

func (f *fakeRoleRepo) AddPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	f.added = append(f.added, permissionIDs)
	f.grants[roleID] = append(f.grants[roleID], permissionIDs...)
	return nil
}

func (f *fakeRoleRepo) RemovePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	f.removed = append(f.removed, permissionIDs)
	remove := map[uuid.UUID]bool{}
	for _, id := range permissionIDs {
		remove[id] = true
	}
	var kept []uuid.UUID
	for _, id := range f.grants[roleID] {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	f.grants[roleID] = kept
	return nil
}

func (f *fakeRoleRepo) DeleteAllPermissions(ctx context.Context, roleID uuid.UUID) error {
	delete(f.grants, roleID)
	return nil
}

func (f *fakeRoleRepo) HasPermission(ctx context.Context, roleID uuid.UUID, permission string) (bool, error) {
	role, ok := f.roles[roleID]
	if !ok {
		return false, nil
	}
	for _, rp := range role.RolePermissions {
		if rp.Permission.Name == permission {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoleRepo) Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r repo.Repository) error) error {
	return fn(ctx, f)
}

type fakePermissionRepo struct {
	permissions map[uuid.UUID]*entity.Permission
}

func newFakePermissionRepo(perms ...*entity.Permission) *fakePermissionRepo {
	f := &fakePermissionRepo{permissions: map[uuid.UUID]*entity.Permission{}}
	for _, p := range perms {
		f.permissions[p.ID] = p
	}
	return f
}

func (f *fakePermissionRepo) Create(ctx context.Context, p *entity.Permission) error {
	f.permissions[p.ID] = p
	return nil
}

func (f *fakePermissionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Permission, error) {
	p, ok := f.permissions[id]
	if !ok {
		return nil, errNotFound
	}
	return p, nil
}

func (f *fakePermissionRepo) FindByName(ctx context.Context, name string) (*entity.Permission, error) {
	for _, p := range f.permissions {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (f *fakePermissionRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Permission, error) {
	var out []entity.Permission
	for _, id := range ids {
		if p, ok := f.permissions[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePermissionRepo) FindAll(ctx context.Context) ([]entity.Permission, error) {
	var out []entity.Permission
	for _, p := range f.permissions {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePermissionRepo) Update(ctx context.Context, p *entity.Permission) error {
	f.permissions[p.ID] = p
	return nil
}

func (f *fakePermissionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.permissions, id)
	return nil
}

func (f *fakePermissionRepo) RolesGranted(ctx context.Context, permissionID uuid.UUID) ([]entity.Role, error) {
	return nil, nil
}

func (f *fakePermissionRepo) CountRoleRefs(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	return 0, nil
}

func seedRole(f *fakeRoleRepo, name string, perms ...entity.Permission) *entity.Role {
	role := &entity.Role{ID: uuid.New(), Name: name}
	for _, p := range perms {
		role.RolePermissions = append(role.RolePermissions, entity.RolePermission{
			RoleID:       role.ID,
			PermissionID: p.ID,
			Permission:   p,
		})
		f.grants[role.ID] = append(f.grants[role.ID], p.ID)
	}
	f.roles[role.ID] = role
	return role
}

func TestHasPermissionReflectsGrants(t *testing.T) {
	roleRepo := newFakeRoleRepo()
	editTopic := entity.Permission{ID: uuid.New(), Name: "edit_topic"}
	teacher := seedRole(roleRepo, entity.RoleTeacher, editTopic)
	student := seedRole(roleRepo, entity.RoleStudent)

	svc := NewService(roleRepo, newFakePermissionRepo())
	ctx := context.Background()

	got, err := svc.HasPermission(ctx, teacher.ID, "edit_topic")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = svc.HasPermission(ctx, teacher.ID, "delete_topic")
	require.NoError(t, err)
	assert.False(t, got)

	got, err = svc.HasPermission(ctx, student.ID, "edit_topic")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	roleRepo := newFakeRoleRepo()
	seedRole(roleRepo, entity.RoleAdmin)

	svc := NewService(roleRepo, newFakePermissionRepo())

	_, err := svc.Create(context.Background(), roleDto.CreateRoleRequest{Name: entity.RoleAdmin})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRemoveRefusedWhileUsersAssigned(t *testing.T) {
	roleRepo := newFakeRoleRepo()
	teacher := seedRole(roleRepo, entity.RoleTeacher)
	roleRepo.userCounts[teacher.ID] = 2

	svc := NewService(roleRepo, newFakePermissionRepo())

	err := svc.Remove(context.Background(), teacher.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, roleRepo.deleted)
}

func TestRemoveDeletesGrantsFirst(t *testing.T) {
	roleRepo := newFakeRoleRepo()
	p := entity.Permission{ID: uuid.New(), Name: "get_comment"}
	stale := seedRole(roleRepo, "assistant", p)

	svc := NewService(roleRepo, newFakePermissionRepo())

	require.NoError(t, svc.Remove(context.Background(), stale.ID))
	assert.Empty(t, roleRepo.grants[stale.ID])
	assert.Contains(t, roleRepo.deleted, stale.ID)
}

func TestAssignPermissionsOnlyInsertsMissing(t *testing.T) {
	roleRepo := newFakeRoleRepo()
	held := entity.Permission{ID: uuid.New(), Name: "get_all_topic"}
	wanted := entity.Permission{ID: uuid.New(), Name: "create_topic"}
	teacher := seedRole(roleRepo, entity.RoleTeacher, held)

	svc := NewService(roleRepo, newFakePermissionRepo(&held, &wanted))

	_, err := svc.AssignPermissions(context.Background(), teacher.ID, []uuid.UUID{held.ID, wanted.ID})
	require.NoError(t, err)

	require.Len(t, roleRepo.added, 1)
	assert.Equal(t, []uuid.UUID{wanted.ID}, roleRepo.added[0])
}

func TestAssignPermissionsRejectsUnknownPermission(t *testing.T) {
	roleRepo := newFakeRoleRepo()
	teacher := seedRole(roleRepo, entity.RoleTeacher)

	svc := NewService(roleRepo, newFakePermissionRepo())

	_, err := svc.AssignPermissions(context.Background(), teacher.ID, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, roleRepo.added)
}
