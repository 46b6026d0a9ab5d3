package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulab-vn/topic-management-api/pkg/apperror"
)

func testIdentity() Identity {
	return Identity{
		ID:     uuid.New(),
		Email:  "teacher@example.com",
		Name:   "Teacher One",
		RoleID: uuid.New(),
	}
}

func TestGeneratePairRoundTrip(t *testing.T) {
	svc := NewService("access-secret", "refresh-secret", time.Minute, time.Hour)
	id := testIdentity()

	pair, err := svc.GeneratePair(id)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	got, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, *got)

	got, err = svc.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, id, *got)
}

func TestAccessTokenRejectedAsRefresh(t *testing.T) {
	svc := NewService("access-secret", "refresh-secret", time.Minute, time.Hour)

	pair, err := svc.GeneratePair(testIdentity())
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.VerifyAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewService("access-secret", "refresh-secret", -time.Minute, time.Hour)

	pair, err := svc.GeneratePair(testIdentity())
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := NewService("access-secret", "refresh-secret", time.Minute, time.Hour)
	other := NewService("other-secret", "other-refresh", time.Minute, time.Hour)

	pair, err := other.GeneratePair(testIdentity())
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
