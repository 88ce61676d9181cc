package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/crypto"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

// APIKeys manages user-supplied provider keys: encrypted at rest, validated
// on demand, and never returned in full after creation.
type APIKeys struct {
	keys      model.APIKeyStore
	envelope  *crypto.Envelope
	validator model.KeyValidator
	logger    *logger.Logger
}

func NewAPIKeys(
	keys model.APIKeyStore,
	envelope *crypto.Envelope,
	validator model.KeyValidator,
	logger *logger.Logger,
) *APIKeys {
	return &APIKeys{
		keys:      keys,
		envelope:  envelope,
		validator: validator,
		logger:    logger,
	}
}

// Create encrypts and stores a key. When makeDefault is set, or when it is
// the user's first key for the provider, it becomes the provider default.
func (s *APIKeys) Create(ctx context.Context, userID uuid.UUID, providerName, label, plainKey string, makeDefault bool) (model.StoredAPIKey, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	if providerName == "" {
		return model.StoredAPIKey{}, apierrors.NewErrValidation("provider is required")
	}
	if strings.TrimSpace(plainKey) == "" {
		return model.StoredAPIKey{}, apierrors.NewErrValidation("api key is required")
	}

	encrypted, err := s.envelope.Encrypt(plainKey)
	if err != nil {
		return model.StoredAPIKey{}, fmt.Errorf("failed to encrypt api key: %w", err)
	}

	existing, err := s.keys.GetByUserID(ctx, userID)
	if err != nil {
		return model.StoredAPIKey{}, fmt.Errorf("failed to list api keys: %w", err)
	}
	firstForProvider := true
	for _, key := range existing {
		if key.Provider == providerName {
			firstForProvider = false
			break
		}
	}

	key := model.StoredAPIKey{
		ID:               uuid.New(),
		UserID:           userID,
		Provider:         providerName,
		Label:            label,
		EncryptedKey:     encrypted,
		KeyHint:          keyHint(plainKey),
		IsDefault:        makeDefault || firstForProvider,
		ValidationStatus: model.ValidationUnknown,
	}

	saved, err := s.keys.Create(ctx, key)
	if err != nil {
		return model.StoredAPIKey{}, fmt.Errorf("failed to create api key: %w", err)
	}

	if saved.IsDefault && !firstForProvider {
		if err := s.keys.SetDefault(ctx, userID, saved.ID, providerName); err != nil {
			return model.StoredAPIKey{}, fmt.Errorf("failed to set default api key: %w", err)
		}
	}

	s.logger.Info("APIKeys service: key stored",
		"user_id", userID,
		"provider", providerName,
		"key_id", saved.ID)

	return saved, nil
}

// List returns the user's keys; encrypted material stays server-side, the
// caller sees only hints and status.
func (s *APIKeys) List(ctx context.Context, userID uuid.UUID) ([]model.StoredAPIKey, error) {
	return s.keys.GetByUserID(ctx, userID)
}

// Delete removes a key scoped to its owner.
func (s *APIKeys) Delete(ctx context.Context, userID, keyID uuid.UUID) error {
	return s.keys.Delete(ctx, keyID, userID)
}

// SetDefault marks the key as its provider's default for the user.
func (s *APIKeys) SetDefault(ctx context.Context, userID, keyID uuid.UUID) error {
	key, err := s.ownedKey(ctx, userID, keyID)
	if err != nil {
		return err
	}
	return s.keys.SetDefault(ctx, userID, keyID, key.Provider)
}

// Validate decrypts the key, probes its provider, and records the outcome.
// An unreachable provider leaves the recorded status untouched.
func (s *APIKeys) Validate(ctx context.Context, userID, keyID uuid.UUID) (model.ValidationStatus, error) {
	key, err := s.ownedKey(ctx, userID, keyID)
	if err != nil {
		return "", err
	}

	plainKey, err := s.envelope.Decrypt(key.EncryptedKey)
	if err != nil {
		s.logger.Error("APIKeys service: failed to decrypt api key",
			"key_id", keyID,
			"error", err.Error())
		return "", apierrors.NewErrNotFound("api key")
	}

	ok, err := s.validator.Validate(ctx, key.Provider, plainKey)
	if err != nil {
		return "", err
	}

	status := model.ValidationInvalid
	if ok {
		status = model.ValidationValid
	}

	if err := s.keys.UpdateValidation(ctx, keyID, status, time.Now()); err != nil {
		return "", fmt.Errorf("failed to record validation status: %w", err)
	}

	return status, nil
}

func (s *APIKeys) ownedKey(ctx context.Context, userID, keyID uuid.UUID) (model.StoredAPIKey, error) {
	key, err := s.keys.GetByID(ctx, keyID)
	if err != nil {
		return model.StoredAPIKey{}, err
	}
	if key.UserID != userID {
		return model.StoredAPIKey{}, model.ErrNotFound
	}
	return key, nil
}

func keyHint(plainKey string) string {
	if len(plainKey) <= 4 {
		return strings.Repeat("*", len(plainKey))
	}
	return "..." + plainKey[len(plainKey)-4:]
}
