package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algoforce/internal/config"
	"algoforce/internal/database"
	"algoforce/internal/domain"
	"algoforce/internal/util"
	apperrors "algoforce/pkg/errors"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{URL: "sqlite:///:memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	tokens := util.NewTokenManager("0123456789abcdef0123456789abcdef", 30*time.Minute)
	return NewAuthService(db, tokens, 30*time.Minute)
}

func TestAuthService_CreateLoginAuthenticate(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserInput{
		Username: "ops", Email: "Ops@AlgoForce.com", Password: "correct-horse", FullName: "Ops Team", IsAdmin: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "ops@algoforce.com", user.Email)

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "ops", Email: "other@algoforce.com", Password: "correct-horse"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "Username already registered")

	_, err = svc.CreateUser(ctx, CreateUserInput{Username: "ops2", Email: "ops@algoforce.com", Password: "correct-horse"})
	assert.Contains(t, err.Error(), "Email already registered")

	_, err = svc.Login(ctx, "ops", "wrong-password")
	assert.True(t, apperrors.IsUnauthorized(err))

	res, err := svc.Login(ctx, " ops ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, 1800, res.ExpiresIn)

	authed, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ops", authed.Username)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_RejectsAccountsWithoutStaffAccess(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "viewer", Email: "viewer@algoforce.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "viewer", "correct-horse")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_CreateUserValidation(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Username: "x", Email: "nope", Password: "short"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "Valid email is required")
	assert.Contains(t, err.Error(), "at least 8 characters")
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), &domain.User{Username: "ops"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ops", user.Username)
}
