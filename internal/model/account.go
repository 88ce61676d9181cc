package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountStore defines persistence operations for connected Gmail accounts.
// Token columns hold envelope-encrypted values; nothing in this layer sees
// plaintext tokens.
type AccountStore interface {
	Upsert(ctx context.Context, account ConnectedAccount) (ConnectedAccount, error)
	GetByID(ctx context.Context, id uuid.UUID) (ConnectedAccount, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]ConnectedAccount, error)
	GetExpiringBefore(ctx context.Context, userID uuid.UUID, deadline time.Time) ([]ConnectedAccount, error)
	UpdateAccessToken(ctx context.Context, id uuid.UUID, encryptedAccessToken string, expiresAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
}

// ConnectedAccount represents one external mail account connected by a user.
type ConnectedAccount struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	Email                 string
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	TokenExpiresAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TokenBundle carries decrypted tokens between the credential store and the
// provider client. It is never persisted or serialized.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}
