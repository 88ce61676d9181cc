// Package mocks provides testify mocks for the model interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/sendlens/sendlens-server/internal/model"
)

// UserStore mocks model.UserStore.
type UserStore struct {
	mock.Mock
}

func (m *UserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *UserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

// AccountStore mocks model.AccountStore.
type AccountStore struct {
	mock.Mock
}

func (m *AccountStore) Upsert(ctx context.Context, account model.ConnectedAccount) (model.ConnectedAccount, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.ConnectedAccount), args.Error(1)
}

func (m *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (model.ConnectedAccount, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.ConnectedAccount), args.Error(1)
}

func (m *AccountStore) GetByUserID(ctx context.Context, userID uuid.UUID) ([]model.ConnectedAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConnectedAccount), args.Error(1)
}

func (m *AccountStore) GetExpiringBefore(ctx context.Context, userID uuid.UUID, deadline time.Time) ([]model.ConnectedAccount, error) {
	args := m.Called(ctx, userID, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConnectedAccount), args.Error(1)
}

func (m *AccountStore) UpdateAccessToken(ctx context.Context, id uuid.UUID, encryptedAccessToken string, expiresAt *time.Time) error {
	args := m.Called(ctx, id, encryptedAccessToken, expiresAt)
	return args.Error(0)
}

func (m *AccountStore) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

// GrantStore mocks model.GrantStore.
type GrantStore struct {
	mock.Mock
}

func (m *GrantStore) Create(ctx context.Context, grant model.PermissionGrant) (model.PermissionGrant, error) {
	args := m.Called(ctx, grant)
	return args.Get(0).(model.PermissionGrant), args.Error(1)
}

func (m *GrantStore) Delete(ctx context.Context, accountID, viewerID uuid.UUID) error {
	args := m.Called(ctx, accountID, viewerID)
	return args.Error(0)
}

func (m *GrantStore) Exists(ctx context.Context, accountID, viewerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, accountID, viewerID)
	return args.Bool(0), args.Error(1)
}

func (m *GrantStore) GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]model.PermissionGrant, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PermissionGrant), args.Error(1)
}

// APIKeyStore mocks model.APIKeyStore.
type APIKeyStore struct {
	mock.Mock
}

func (m *APIKeyStore) Create(ctx context.Context, key model.StoredAPIKey) (model.StoredAPIKey, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.StoredAPIKey), args.Error(1)
}

func (m *APIKeyStore) GetByID(ctx context.Context, id uuid.UUID) (model.StoredAPIKey, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.StoredAPIKey), args.Error(1)
}

func (m *APIKeyStore) GetByUserID(ctx context.Context, userID uuid.UUID) ([]model.StoredAPIKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredAPIKey), args.Error(1)
}

func (m *APIKeyStore) SetDefault(ctx context.Context, userID, id uuid.UUID, provider string) error {
	args := m.Called(ctx, userID, id, provider)
	return args.Error(0)
}

func (m *APIKeyStore) UpdateValidation(ctx context.Context, id uuid.UUID, status model.ValidationStatus, checkedAt time.Time) error {
	args := m.Called(ctx, id, status, checkedAt)
	return args.Error(0)
}

func (m *APIKeyStore) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

// AuditStore mocks model.AuditStore.
type AuditStore struct {
	mock.Mock
}

func (m *AuditStore) Append(ctx context.Context, entry model.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *AuditStore) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]model.AuditEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditEntry), args.Error(1)
}

// ConnectStateStore mocks model.ConnectStateStore.
type ConnectStateStore struct {
	mock.Mock
}

func (m *ConnectStateStore) Create(ctx context.Context, pending model.PendingConnect) error {
	args := m.Called(ctx, pending)
	return args.Error(0)
}

func (m *ConnectStateStore) GetByState(ctx context.Context, state string) (model.PendingConnect, error) {
	args := m.Called(ctx, state)
	return args.Get(0).(model.PendingConnect), args.Error(1)
}

func (m *ConnectStateStore) Consume(ctx context.Context, state string) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *ConnectStateStore) DeleteExpired(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// RefreshTokenStore mocks model.RefreshTokenStore.
type RefreshTokenStore struct {
	mock.Mock
}

func (m *RefreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *RefreshTokenStore) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	args := m.Called(ctx, jti)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *RefreshTokenStore) RevokeByJTI(ctx context.Context, jti string) error {
	args := m.Called(ctx, jti)
	return args.Error(0)
}

func (m *RefreshTokenStore) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
