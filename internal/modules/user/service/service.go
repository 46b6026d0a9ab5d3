package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

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

type Service interface {
	Login(ctx context.Context, req userDto.LoginRequest) (*userDto.AuthResponse, error)
	Refresh(ctx context.Context, req userDto.RefreshRequest) (*userDto.AuthResponse, error)
	Register(ctx context.Context, req userDto.RegisterRequest) (*userDto.UserResponse, error)
	BulkRegister(ctx context.Context, req userDto.BulkRegisterRequest) ([]userDto.UserResponse, []userDto.RowError, error)
	FindAll(ctx context.Context, page dto.PageQuery) (*dto.Paginated[userDto.UserResponse], error)
}

type service struct {
	userRepo repo.Repository
	roleRepo roleRepo.Repository
	tokens   *token.Service
}

func NewService(userRepo repo.Repository, roleRepo roleRepo.Repository, tokens *token.Service) Service {
	return &service{
		userRepo: userRepo,
		roleRepo: roleRepo,
		tokens:   tokens,
	}
}

func (s *service) Login(ctx context.Context, req userDto.LoginRequest) (*userDto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
	}

	if !hash.Compare(user.Password, req.Password) {
		return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
	}

	return s.buildAuthResponse(user)
}

// Refresh issues a fresh token pair. The user is reloaded so a role change
// since the refresh token was minted is reflected in the new pair.
func (s *service) Refresh(ctx context.Context, req userDto.RefreshRequest) (*userDto.AuthResponse, error) {
	identity, err := s.tokens.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("user no longer exists: %w", apperror.ErrUnauthorized)
	}

	return s.buildAuthResponse(user)
}

func (s *service) Register(ctx context.Context, req userDto.RegisterRequest) (*userDto.UserResponse, error) {
	email := strings.ToLower(req.Email)
	if existing, err := s.userRepo.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("email already registered: %w", apperror.ErrValidation)
	}

	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		return nil, fmt.Errorf("invalid role id: %w", apperror.ErrValidation)
	}
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("role not found: %w", apperror.ErrValidation)
	}

	hashed, err := hash.Password(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Name:     req.Name,
		Email:    email,
		Password: hashed,
		RoleID:   role.ID,
		Role:     *role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return userDto.NewUserResponse(user), nil
}

// BulkRegister inserts all rows or none. Every invalid row is reported with
// its index; a non-empty RowError slice means nothing was written.
func (s *service) BulkRegister(ctx context.Context, req userDto.BulkRegisterRequest) ([]userDto.UserResponse, []userDto.RowError, error) {
	roles, err := s.roleRepo.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	rolesByID := make(map[uuid.UUID]entity.Role, len(roles))
	for _, r := range roles {
		rolesByID[r.ID] = r
	}

	emails := make([]string, 0, len(req.Users))
	for _, row := range req.Users {
		emails = append(emails, strings.ToLower(row.Email))
	}
	existing, err := s.userRepo.FindByEmails(ctx, emails)
	if err != nil {
		return nil, nil, err
	}
	taken := make(map[string]bool, len(existing))
	for _, u := range existing {
		taken[u.Email] = true
	}

	var rowErrs []userDto.RowError
	seen := make(map[string]int, len(req.Users))
	users := make([]entity.User, 0, len(req.Users))

	for i, row := range req.Users {
		email := strings.ToLower(row.Email)

		if first, dup := seen[email]; dup {
			rowErrs = append(rowErrs, userDto.RowError{
				Row: i, Email: email,
				Message: fmt.Sprintf("duplicate of row %d", first),
			})
			continue
		}
		seen[email] = i

		if taken[email] {
			rowErrs = append(rowErrs, userDto.RowError{
				Row: i, Email: email,
				Message: "email already registered",
			})
			continue
		}

		roleID, err := uuid.Parse(row.RoleID)
		if err != nil {
			rowErrs = append(rowErrs, userDto.RowError{
				Row: i, Email: email,
				Message: "invalid role id",
			})
			continue
		}
		role, ok := rolesByID[roleID]
		if !ok {
			rowErrs = append(rowErrs, userDto.RowError{
				Row: i, Email: email,
				Message: "role not found",
			})
			continue
		}

		hashed, err := hash.Password(row.Password)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash password: %w", err)
		}

		users = append(users, entity.User{
			Name:     row.Name,
			Email:    email,
			Password: hashed,
			RoleID:   role.ID,
			Role:     role,
		})
	}

	if len(rowErrs) > 0 {
		return nil, rowErrs, fmt.Errorf("bulk registration rejected: %w", apperror.ErrValidation)
	}

	err = s.userRepo.Transaction(ctx, database.TxReadOnly, func(ctx context.Context, r repo.Repository) error {
		return r.CreateMany(ctx, users)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create users: %w", err)
	}

	responses := make([]userDto.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *userDto.NewUserResponse(&users[i]))
	}
	return responses, nil, nil
}

func (s *service) FindAll(ctx context.Context, page dto.PageQuery) (*dto.Paginated[userDto.UserResponse], error) {
	page.Normalize()

	users, total, err := s.userRepo.FindAll(ctx, page.Page, page.PageSize)
	if err != nil {
		return nil, err
	}

	responses := make([]userDto.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *userDto.NewUserResponse(&users[i]))
	}

	return dto.NewPaginated(responses, total, page.Page, page.PageSize), nil
}

func (s *service) buildAuthResponse(user *entity.User) (*userDto.AuthResponse, error) {
	pair, err := s.tokens.GeneratePair(token.Identity{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RoleID: user.RoleID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign tokens: %w", err)
	}

	return &userDto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		User:         userDto.NewUserResponse(user),
	}, nil
}
