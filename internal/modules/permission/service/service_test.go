package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	permissionDto "github.com/edulab-vn/topic-management-api/internal/modules/permission/dto"
	"github.com/edulab-vn/topic-management-api/pkg/apperror"
)

var errNotFound = errors.New("record not found")

type fakePermissionRepo struct {
	permissions map[uuid.UUID]*entity.Permission
	roleRefs    map[uuid.UUID]int64
	granted     map[uuid.UUID][]entity.Role

	deleted []uuid.UUID
}

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{
		permissions: map[uuid.UUID]*entity.Permission{},
		roleRefs:    map[uuid.UUID]int64{},
		granted:     map[uuid.UUID][]entity.Role{},
	}
}

func (f *fakePermissionRepo) seed(name string) *entity.Permission {
	p := &entity.Permission{ID: uuid.New(), Name: name}
	f.permissions[p.ID] = p
	return p
}

func (f *fakePermissionRepo) Create(ctx context.Context, p *entity.Permission) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
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
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePermissionRepo) RolesGranted(ctx context.Context, permissionID uuid.UUID) ([]entity.Role, error) {
	return f.granted[permissionID], nil
}

func (f *fakePermissionRepo) CountRoleRefs(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	return f.roleRefs[permissionID], nil
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	permRepo := newFakePermissionRepo()
	permRepo.seed("create_topic")

	svc := NewService(permRepo)

	_, err := svc.Create(context.Background(), permissionDto.CreatePermissionRequest{Name: "create_topic"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestFindOneListsGrantingRoles(t *testing.T) {
	permRepo := newFakePermissionRepo()
	p := permRepo.seed("get_comment")
	permRepo.granted[p.ID] = []entity.Role{
		{ID: uuid.New(), Name: entity.RoleTeacher},
		{ID: uuid.New(), Name: entity.RoleStudent},
	}

	svc := NewService(permRepo)

	resp, err := svc.FindOne(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "get_comment", resp.Name)
	assert.Len(t, resp.Roles, 2)
}

func TestUpdateRejectsNameCollision(t *testing.T) {
	permRepo := newFakePermissionRepo()
	permRepo.seed("create_topic")
	p := permRepo.seed("edit_topic")

	svc := NewService(permRepo)

	_, err := svc.Update(context.Background(), p.ID, permissionDto.UpdatePermissionRequest{Name: "create_topic"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// Re-submitting the current name is a no-op, not a collision.
	updated, err := svc.Update(context.Background(), p.ID, permissionDto.UpdatePermissionRequest{Name: "edit_topic"})
	require.NoError(t, err)
	assert.Equal(t, "edit_topic", updated.Name)
}

func TestRemoveRefusedWhileGranted(t *testing.T) {
	permRepo := newFakePermissionRepo()
	p := permRepo.seed("delete_topic")
	permRepo.roleRefs[p.ID] = 2

	svc := NewService(permRepo)

	err := svc.Remove(context.Background(), p.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, permRepo.deleted)

	permRepo.roleRefs[p.ID] = 0
	require.NoError(t, svc.Remove(context.Background(), p.ID))
	assert.Contains(t, permRepo.deleted, p.ID)
}
