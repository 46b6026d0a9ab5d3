package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/pkg/apperror"
)

// Identity is the payload carried inside every token.
type Identity struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	RoleID uuid.UUID `json:"roleId"`
}

type Claims struct {
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	RoleID uuid.UUID `json:"roleId"`
	jwt.RegisteredClaims
}

// Service issues and verifies access/refresh token pairs. It is the only
// place that knows JWT mechanics; callers treat it as opaque.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Service) GeneratePair(id Identity) (*Pair, error) {
	access, err := s.sign(id, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(id, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) VerifyAccessToken(tokenString string) (*Identity, error) {
	return s.verify(tokenString, s.accessSecret)
}

func (s *Service) VerifyRefreshToken(tokenString string) (*Identity, error) {
	return s.verify(tokenString, s.refreshSecret)
}

func (s *Service) sign(id Identity, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:  id.Email,
		Name:   id.Name,
		RoleID: id.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Service) verify(tokenString string, secret []byte) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token: %w", apperror.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", apperror.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Join(apperror.ErrUnauthorized, err)
	}

	return &Identity{
		ID:     userID,
		Email:  claims.Email,
		Name:   claims.Name,
		RoleID: claims.RoleID,
	}, nil
}
