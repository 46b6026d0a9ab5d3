package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	roleRepo "github.com/edulab-vn/topic-management-api/internal/modules/role/repository"
	userDto "github.com/edulab-vn/topic-management-api/internal/modules/user/dto"
	repo "github.com/edulab-vn/topic-management-api/internal/modules/user/repository"
	"github.com/edulab-vn/topic-management-api/pkg/apperror"
	"github.com/edulab-vn/topic-management-api/pkg/database"
	"github.com/edulab-vn/topic-management-api/pkg/dto"
	"github.com/edulab-vn/topic-management-api/pkg/hash"
	"github.com/edulab-vn/topic-management-api/pkg/token"
)

var errNotFound = errors.New("record not found")

// --- fakes ---

type fakeUserRepo struct {
	byID    map[uuid.UUID]*entity.User
	byEmail map[string]*entity.User

	createdMany [][]entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[uuid.UUID]*entity.User{},
		byEmail: map[string]*entity.User{},
	}
}

func (f *fakeUserRepo) add(user *entity.User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	f.add(user)
	return nil
}

func (f *fakeUserRepo) CreateMany(ctx context.Context, users []entity.User) error {
	f.createdMany = append(f.createdMany, users)
	for i := range users {
		u := users[i]
		f.add(&u)
	}
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, errNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error) {
	var out []entity.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindByEmails(ctx context.Context, emails []string) ([]entity.User, error) {
	var out []entity.User
	for _, email := range emails {
		if u, ok := f.byEmail[email]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) FindAll(ctx context.Context, page, pageSize int) ([]entity.User, int64, error) {
	var out []entity.User
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r repo.Repository) error) error {
	return fn(ctx, f)
}

type fakeRoleRepo struct {
	roles map[uuid.UUID]*entity.Role
}

func (f *fakeRoleRepo) Create(ctx context.Context, role *entity.Role) error { return nil }

func (f *fakeRoleRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, errNotFound
	}
	return role, nil
}

func (f *fakeRoleRepo) FindByName(ctx context.Context, name string) (*entity.Role, error) {
	return nil, errNotFound
}

func (f *fakeRoleRepo) FindAll(ctx context.Context) ([]entity.Role, error) {
	var out []entity.Role
	for _, role := range f.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (f *fakeRoleRepo) Update(ctx context.Context, role *entity.Role) error { return nil }
func (f *fakeRoleRepo) Delete(ctx context.Context, id uuid.UUID) error      { return nil }
func (f *fakeRoleRepo) CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	return 0, nil
}
func (f *fakeRoleRepo) PermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
func (f *fakeRoleRepo) AddPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	return nil
}
func (f *fakeRoleRepo) RemovePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	return nil
}
func (f *fakeRoleRepo) DeleteAllPermissions(ctx context.Context, roleID uuid.UUID) error { return nil }
func (f *fakeRoleRepo) HasPermission(ctx context.Context, roleID uuid.UUID, permission string) (bool, error) {
	return false, nil
}
func (f *fakeRoleRepo) Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, r roleRepo.Repository) error) error {
	return fn(ctx, f)
}

// --- fixture ---

type fixture struct {
	svc      Service
	userRepo *fakeUserRepo
	tokens   *token.Service

	studentRole *entity.Role
	alice       *entity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	studentRole := &entity.Role{ID: uuid.New(), Name: entity.RoleStudent}

	hashed, err := hash.Password("correct horse")
	require.NoError(t, err)
	alice := &entity.User{
		ID:       uuid.New(),
		Name:     "alice",
		Email:    "alice@example.com",
		Password: hashed,
		RoleID:   studentRole.ID,
		Role:     *studentRole,
	}

	users := newFakeUserRepo()
	users.add(alice)

	roles := &fakeRoleRepo{roles: map[uuid.UUID]*entity.Role{studentRole.ID: studentRole}}
	tokens := token.NewService("access-secret", "refresh-secret", time.Minute, time.Hour)

	return &fixture{
		svc:         NewService(users, roles, tokens),
		userRepo:    users,
		tokens:      tokens,
		studentRole: studentRole,
		alice:       alice,
	}
}

// --- tests ---

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Login(context.Background(), userDto.LoginRequest{
		Email:    "Alice@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, f.alice.ID, resp.User.ID)
	assert.Equal(t, entity.RoleStudent, resp.User.Role)

	identity, err := f.tokens.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, identity.ID)
	assert.Equal(t, f.studentRole.ID, identity.RoleID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), userDto.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.svc.Login(context.Background(), userDto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct horse",
	})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRefreshReloadsUser(t *testing.T) {
	f := newFixture(t)

	login, err := f.svc.Login(context.Background(), userDto.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	// A role change after login must show up in the refreshed pair.
	teacherRole := entity.Role{ID: uuid.New(), Name: entity.RoleTeacher}
	f.alice.RoleID = teacherRole.ID
	f.alice.Role = teacherRole

	refreshed, err := f.svc.Refresh(context.Background(), userDto.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleTeacher, refreshed.User.Role)

	identity, err := f.tokens.VerifyAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, teacherRole.ID, identity.RoleID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture(t)

	login, err := f.svc.Login(context.Background(), userDto.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), userDto.RefreshRequest{
		RefreshToken: login.AccessToken,
	})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRegisterHashesPasswordAndLowercasesEmail(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(context.Background(), userDto.RegisterRequest{
		Name:     "bob",
		Email:    "Bob@Example.com",
		Password: "hunter2hunter2",
		RoleID:   f.studentRole.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", resp.Email)

	stored := f.userRepo.byEmail["bob@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "hunter2hunter2", stored.Password)
	assert.True(t, hash.Compare(stored.Password, "hunter2hunter2"))
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), userDto.RegisterRequest{
		Name:     "imposter",
		Email:    "ALICE@example.com",
		Password: "hunter2hunter2",
		RoleID:   f.studentRole.ID.String(),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), userDto.RegisterRequest{
		Name:     "bob",
		Email:    "bob@example.com",
		Password: "hunter2hunter2",
		RoleID:   uuid.NewString(),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestBulkRegisterAllOrNothing(t *testing.T) {
	f := newFixture(t)

	_, rowErrs, err := f.svc.BulkRegister(context.Background(), userDto.BulkRegisterRequest{
		Users: []userDto.RegisterRequest{
			{Name: "bob", Email: "bob@example.com", Password: "hunter2hunter2", RoleID: f.studentRole.ID.String()},
			{Name: "dup", Email: "BOB@example.com", Password: "hunter2hunter2", RoleID: f.studentRole.ID.String()},
			{Name: "taken", Email: "alice@example.com", Password: "hunter2hunter2", RoleID: f.studentRole.ID.String()},
			{Name: "norole", Email: "carol@example.com", Password: "hunter2hunter2", RoleID: uuid.NewString()},
		},
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	require.Len(t, rowErrs, 3)

	assert.Equal(t, 1, rowErrs[0].Row)
	assert.Contains(t, rowErrs[0].Message, "duplicate of row 0")
	assert.Equal(t, 2, rowErrs[1].Row)
	assert.Contains(t, rowErrs[1].Message, "already registered")
	assert.Equal(t, 3, rowErrs[2].Row)
	assert.Contains(t, rowErrs[2].Message, "role not found")

	// Nothing was written, not even the valid first row.
	assert.Empty(t, f.userRepo.createdMany)
	assert.Nil(t, f.userRepo.byEmail["bob@example.com"])
}

func TestBulkRegisterCreatesAllRows(t *testing.T) {
	f := newFixture(t)

	created, rowErrs, err := f.svc.BulkRegister(context.Background(), userDto.BulkRegisterRequest{
		Users: []userDto.RegisterRequest{
			{Name: "bob", Email: "bob@example.com", Password: "hunter2hunter2", RoleID: f.studentRole.ID.String()},
			{Name: "carol", Email: "carol@example.com", Password: "hunter2hunter2", RoleID: f.studentRole.ID.String()},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, created, 2)

	require.Len(t, f.userRepo.createdMany, 1)
	assert.Len(t, f.userRepo.createdMany[0], 2)
	assert.NotNil(t, f.userRepo.byEmail["bob@example.com"])
	assert.NotNil(t, f.userRepo.byEmail["carol@example.com"])
}

func TestFindAllPaginates(t *testing.T) {
	f := newFixture(t)

	page, err := f.svc.FindAll(context.Background(), dto.PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalItems)
	assert.Len(t, page.Data, 1)
}
