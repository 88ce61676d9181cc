package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sendlens/sendlens-server/internal/mocks"
	"github.com/sendlens/sendlens-server/internal/model"
	"github.com/sendlens/sendlens-server/internal/testutil"
)

func newAPIKeysService(t *testing.T, keys *mocks.APIKeyStore, validator *mocks.KeyValidator) *APIKeys {
	t.Helper()
	return NewAPIKeys(keys, newTestEnvelope(t), validator, testutil.MakeNoopLogger())
}

func TestAPIKeys_Create_FirstForProviderBecomesDefault(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	keys := &mocks.APIKeyStore{}
	keys.On("GetByUserID", ctx, userID).Return([]model.StoredAPIKey{}, nil).Once()

	var captured model.StoredAPIKey
	keys.On("Create", ctx, mock.AnythingOfType("model.StoredAPIKey")).Run(func(args mock.Arguments) {
		captured = args.Get(1).(model.StoredAPIKey)
	}).Return(model.StoredAPIKey{ID: uuid.New(), Provider: "zerobounce", IsDefault: true}, nil).Once()

	svc := newAPIKeysService(t, keys, &mocks.KeyValidator{})

	saved, err := svc.Create(ctx, userID, "ZeroBounce", "primary", "zb-secret-1234", false)
	require.NoError(t, err)
	assert.True(t, saved.IsDefault)
	assert.Equal(t, "zerobounce", captured.Provider)
	assert.Equal(t, "...1234", captured.KeyHint)
	assert.NotEqual(t, "zb-secret-1234", captured.EncryptedKey)
	assert.Equal(t, model.ValidationUnknown, captured.ValidationStatus)
}

func TestAPIKeys_Create_SecondKeyNotDefault(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	keys := &mocks.APIKeyStore{}
	keys.On("GetByUserID", ctx, userID).Return([]model.StoredAPIKey{
		{Provider: "zerobounce", IsDefault: true},
	}, nil).Once()
	keys.On("Create", ctx, mock.AnythingOfType("model.StoredAPIKey")).Return(model.StoredAPIKey{ID: uuid.New()}, nil).Once()

	svc := newAPIKeysService(t, keys, &mocks.KeyValidator{})

	saved, err := svc.Create(ctx, userID, "zerobounce", "", "zb-secret-5678", false)
	require.NoError(t, err)
	assert.False(t, saved.IsDefault)
	keys.AssertNotCalled(t, "SetDefault", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAPIKeys_Create_MakeDefaultDemotesExisting(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	newID := uuid.New()

	keys := &mocks.APIKeyStore{}
	keys.On("GetByUserID", ctx, userID).Return([]model.StoredAPIKey{
		{Provider: "zerobounce", IsDefault: true},
	}, nil).Once()
	keys.On("Create", ctx, mock.AnythingOfType("model.StoredAPIKey")).Return(model.StoredAPIKey{ID: newID, Provider: "zerobounce", IsDefault: true}, nil).Once()
	keys.On("SetDefault", ctx, userID, newID, "zerobounce").Return(nil).Once()

	svc := newAPIKeysService(t, keys, &mocks.KeyValidator{})

	_, err := svc.Create(ctx, userID, "zerobounce", "", "zb-secret-9999", true)
	require.NoError(t, err)
	keys.AssertExpectations(t)
}

func TestAPIKeys_Create_EmptyKeyRejected(t *testing.T) {
	svc := newAPIKeysService(t, &mocks.APIKeyStore{}, &mocks.KeyValidator{})

	_, err := svc.Create(context.Background(), uuid.New(), "zerobounce", "", "   ", false)
	require.Error(t, err)
}

func TestAPIKeys_Validate_RecordsOutcome(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	keyID := uuid.New()

	envelope := newTestEnvelope(t)
	encrypted, err := envelope.Encrypt("zb-secret")
	require.NoError(t, err)

	keys := &mocks.APIKeyStore{}
	keys.On("GetByID", ctx, keyID).Return(model.StoredAPIKey{
		ID:           keyID,
		UserID:       userID,
		Provider:     "zerobounce",
		EncryptedKey: encrypted,
	}, nil).Once()
	validator := &mocks.KeyValidator{}
	validator.On("Validate", ctx, "zerobounce", "zb-secret").Return(true, nil).Once()
	keys.On("UpdateValidation", ctx, keyID, model.ValidationValid, mock.AnythingOfType("time.Time")).Return(nil).Once()

	svc := newAPIKeysService(t, keys, validator)

	status, err := svc.Validate(ctx, userID, keyID)
	require.NoError(t, err)
	assert.Equal(t, model.ValidationValid, status)
	keys.AssertExpectations(t)
}

func TestAPIKeys_Validate_ProviderUnreachableLeavesStatus(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	keyID := uuid.New()

	envelope := newTestEnvelope(t)
	encrypted, err := envelope.Encrypt("zb-secret")
	require.NoError(t, err)

	keys := &mocks.APIKeyStore{}
	keys.On("GetByID", ctx, keyID).Return(model.StoredAPIKey{
		ID:           keyID,
		UserID:       userID,
		Provider:     "zerobounce",
		EncryptedKey: encrypted,
	}, nil).Once()
	validator := &mocks.KeyValidator{}
	validator.On("Validate", ctx, "zerobounce", "zb-secret").Return(false, assert.AnError).Once()

	svc := newAPIKeysService(t, keys, validator)

	_, err = svc.Validate(ctx, userID, keyID)
	require.Error(t, err)
	keys.AssertNotCalled(t, "UpdateValidation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAPIKeys_Validate_NotOwner(t *testing.T) {
	ctx := context.Background()
	keyID := uuid.New()

	keys := &mocks.APIKeyStore{}
	keys.On("GetByID", ctx, keyID).Return(model.StoredAPIKey{
		ID:     keyID,
		UserID: uuid.New(),
	}, nil).Once()

	svc := newAPIKeysService(t, keys, &mocks.KeyValidator{})

	_, err := svc.Validate(ctx, uuid.New(), keyID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestKeyHint(t *testing.T) {
	assert.Equal(t, "...1234", keyHint("secret-1234"))
	assert.Equal(t, "***", keyHint("abc"))
}
