package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/mocks"
	"github.com/sendlens/sendlens-server/internal/model"
	"github.com/sendlens/sendlens-server/internal/testutil"
)

func newAuthService(users *mocks.UserStore, tokens *mocks.RefreshTokenStore, manager *mocks.TokenManager) *Auth {
	tokenService := NewTokenService(manager, tokens, 30*24*time.Hour, testutil.MakeNoopLogger())
	return NewAuth(users, tokenService, testutil.MakeNoopLogger())
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()

	users := &mocks.UserStore{}
	users.On("GetByEmail", ctx, "new@example.com").Return(model.User{}, model.ErrNotFound).Once()

	var captured model.User
	users.On("Create", ctx, mock.AnythingOfType("model.User")).Run(func(args mock.Arguments) {
		captured = args.Get(1).(model.User)
	}).Return(model.User{ID: uuid.New(), Email: "new@example.com"}, nil).Once()

	svc := newAuthService(users, &mocks.RefreshTokenStore{}, &mocks.TokenManager{})

	user, err := svc.Register(ctx, " New@Example.com ", "New User", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	// The stored hash must verify against the original password.
	assert.NoError(t, bcrypt.CompareHashAndPassword(captured.PasswordHash, []byte("longenough")))
}

func TestAuth_Register_EmailTaken(t *testing.T) {
	ctx := context.Background()

	users := &mocks.UserStore{}
	users.On("GetByEmail", ctx, "taken@example.com").Return(model.User{ID: uuid.New()}, nil).Once()

	svc := newAuthService(users, &mocks.RefreshTokenStore{}, &mocks.TokenManager{})

	_, err := svc.Register(ctx, "taken@example.com", "", "longenough")
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "email_taken", apiErr.Code)
}

func TestAuth_Register_ShortPassword(t *testing.T) {
	svc := newAuthService(&mocks.UserStore{}, &mocks.RefreshTokenStore{}, &mocks.TokenManager{})

	_, err := svc.Register(context.Background(), "a@example.com", "", "short")
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "validation_failed", apiErr.Code)
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &mocks.UserStore{}
	users.On("GetByEmail", ctx, "user@example.com").Return(model.User{
		ID:           userID,
		Email:        "user@example.com",
		PasswordHash: hash,
	}, nil).Once()

	manager := &mocks.TokenManager{}
	manager.On("GenerateAccessToken", userID).Return("access", nil).Once()
	manager.On("GenerateRefreshToken", userID).Return("refresh", "jti-1", nil).Once()
	tokens := &mocks.RefreshTokenStore{}
	tokens.On("Create", ctx, mock.AnythingOfType("model.RefreshToken")).Return(nil).Maybe()

	svc := newAuthService(users, tokens, manager)

	user, access, refresh, err := svc.Login(ctx, "user@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "access", access)
	assert.Equal(t, "refresh", refresh)
}

func TestAuth_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &mocks.UserStore{}
	users.On("GetByEmail", ctx, "user@example.com").Return(model.User{
		ID:           uuid.New(),
		PasswordHash: hash,
	}, nil).Once()

	svc := newAuthService(users, &mocks.RefreshTokenStore{}, &mocks.TokenManager{})

	_, _, _, err = svc.Login(ctx, "user@example.com", "wrong")
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
}

func TestAuth_Login_UnknownUser(t *testing.T) {
	ctx := context.Background()

	users := &mocks.UserStore{}
	users.On("GetByEmail", ctx, "ghost@example.com").Return(model.User{}, model.ErrNotFound).Once()

	svc := newAuthService(users, &mocks.RefreshTokenStore{}, &mocks.TokenManager{})

	_, _, _, err := svc.Login(ctx, "ghost@example.com", "whatever")
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
}
