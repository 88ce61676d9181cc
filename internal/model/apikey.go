package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// APIKeyStore defines persistence operations for user-supplied provider keys.
type APIKeyStore interface {
	Create(ctx context.Context, key StoredAPIKey) (StoredAPIKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (StoredAPIKey, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]StoredAPIKey, error)
	SetDefault(ctx context.Context, userID, id uuid.UUID, provider string) error
	UpdateValidation(ctx context.Context, id uuid.UUID, status ValidationStatus, checkedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
}

// ValidationStatus records the outcome of the last key validation attempt.
type ValidationStatus string

const (
	ValidationUnknown ValidationStatus = "unknown"
	ValidationValid   ValidationStatus = "valid"
	ValidationInvalid ValidationStatus = "invalid"
)

// KeyValidator checks a plaintext key against its provider. ok reports
// whether the provider accepted the key; err reports that the check itself
// could not be completed.
type KeyValidator interface {
	Validate(ctx context.Context, provider, key string) (ok bool, err error)
}

// StoredAPIKey is an envelope-encrypted third-party API key owned by a user.
// KeyHint keeps the last characters of the plaintext for display; the full
// key is never returned after creation.
type StoredAPIKey struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Provider         string
	Label            string
	EncryptedKey     string
	KeyHint          string
	IsDefault        bool
	ValidationStatus ValidationStatus
	ValidatedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
