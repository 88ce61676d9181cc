package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/crypto"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

// Credentials persists OAuth token pairs for connected accounts. Tokens are
// envelope-encrypted before any write and decrypted on every read; there is
// no cache in between.
type Credentials struct {
	accounts model.AccountStore
	envelope *crypto.Envelope
	logger   *logger.Logger
}

func NewCredentials(accounts model.AccountStore, envelope *crypto.Envelope, logger *logger.Logger) *Credentials {
	return &Credentials{
		accounts: accounts,
		envelope: envelope,
		logger:   logger,
	}
}

// StoreTokens upserts the credential record for (userID, email).
func (s *Credentials) StoreTokens(ctx context.Context, userID uuid.UUID, email string, bundle model.TokenBundle) (model.ConnectedAccount, error) {
	encryptedAccess, err := s.envelope.Encrypt(bundle.AccessToken)
	if err != nil {
		return model.ConnectedAccount{}, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	encryptedRefresh, err := s.envelope.Encrypt(bundle.RefreshToken)
	if err != nil {
		return model.ConnectedAccount{}, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	account := model.ConnectedAccount{
		ID:                    uuid.New(),
		UserID:                userID,
		Email:                 email,
		EncryptedAccessToken:  encryptedAccess,
		EncryptedRefreshToken: encryptedRefresh,
		TokenExpiresAt:        bundle.ExpiresAt,
	}

	saved, err := s.accounts.Upsert(ctx, account)
	if err != nil {
		return model.ConnectedAccount{}, fmt.Errorf("failed to store tokens: %w", err)
	}

	return saved, nil
}

// GetTokens decrypts the stored token pair for an account. A decryption
// failure is logged and reported as ErrNeedsReconnect so callers prompt the
// user to reconnect instead of crashing.
func (s *Credentials) GetTokens(ctx context.Context, accountID uuid.UUID) (model.TokenBundle, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.TokenBundle{}, err
	}

	accessToken, err := s.envelope.Decrypt(account.EncryptedAccessToken)
	if err != nil {
		s.logger.Error("Credentials service: failed to decrypt access token",
			"account_id", accountID,
			"error", err.Error())
		return model.TokenBundle{}, model.ErrNeedsReconnect
	}

	refreshToken, err := s.envelope.Decrypt(account.EncryptedRefreshToken)
	if err != nil {
		s.logger.Error("Credentials service: failed to decrypt refresh token",
			"account_id", accountID,
			"error", err.Error())
		return model.TokenBundle{}, model.ErrNeedsReconnect
	}

	return model.TokenBundle{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    account.TokenExpiresAt,
	}, nil
}

// UpdateAccessToken encrypts and persists a refreshed access token.
func (s *Credentials) UpdateAccessToken(ctx context.Context, accountID uuid.UUID, accessToken string, expiresAt *time.Time) error {
	encrypted, err := s.envelope.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	if err := s.accounts.UpdateAccessToken(ctx, accountID, encrypted, expiresAt); err != nil {
		return fmt.Errorf("failed to persist refreshed access token: %w", err)
	}

	return nil
}

// Delete removes the account scoped to its owner; a non-owner observes
// not-found.
func (s *Credentials) Delete(ctx context.Context, accountID, ownerID uuid.UUID) error {
	return s.accounts.Delete(ctx, accountID, ownerID)
}
