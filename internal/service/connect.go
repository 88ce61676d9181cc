package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

const (
	// refreshMargin is the lookahead window before expiry within which an
	// access token is proactively refreshed.
	refreshMargin = 5 * time.Minute
	// batchRefreshWindow selects accounts for the refresh-all operation.
	batchRefreshWindow = time.Hour

	stateTokenBytes = 32
)

// Callback outcomes surfaced to the settings page as a query-string status.
// Raw provider error strings never reach the browser.
const (
	CallbackConnected           = "connected"
	CallbackInvalidState        = "invalid_state"
	CallbackConsentDenied       = "consent_denied"
	CallbackMalformedRequest    = "malformed_request"
	CallbackClientMisconfigured = "client_misconfigured"
	CallbackProviderError       = "provider_error"
	CallbackExchangeFailed      = "exchange_failed"
)

// Refresh outcomes per account.
const (
	RefreshStatusRefreshed = "refreshed"
	RefreshStatusSkipped   = "skipped"
	RefreshStatusFailed    = "failed"
)

// RefreshResult is one account's outcome in a refresh operation.
type RefreshResult struct {
	AccountID uuid.UUID
	Email     string
	Status    string
}

// CallbackParams carries everything the provider redirect delivered plus the
// state cookie minted when the attempt started.
type CallbackParams struct {
	State         string
	CookieState   string
	Code          string
	ProviderError string
}

// Connect drives the OAuth connection lifecycle: auth URL issuance, the
// callback exchange, on-demand refresh and disconnect.
//
// Concurrent refreshes of the same credential are deliberately not
// serialized: the provider tolerates refresh-token reuse and the storage
// update is last-writer-wins over always-valid tokens.
type Connect struct {
	provider    model.MailProvider
	credentials *Credentials
	accounts    model.AccountStore
	states      model.ConnectStateStore
	audit       model.AuditStore
	logger      *logger.Logger
}

func NewConnect(
	provider model.MailProvider,
	credentials *Credentials,
	accounts model.AccountStore,
	states model.ConnectStateStore,
	audit model.AuditStore,
	logger *logger.Logger,
) *Connect {
	return &Connect{
		provider:    provider,
		credentials: credentials,
		accounts:    accounts,
		states:      states,
		audit:       audit,
		logger:      logger,
	}
}

// Start mints a state token for one authorization attempt, binds it to the
// user server-side, and returns the provider authorization URL.
func (s *Connect) Start(ctx context.Context, userID uuid.UUID) (authURL string, state string, err error) {
	// Abandoned attempts expire after PendingConnectDuration; sweep them here
	// rather than with a background job.
	if err := s.states.DeleteExpired(ctx); err != nil {
		s.logger.Error("Connect service: failed to sweep expired pending connects",
			"error", err.Error())
	}

	raw := make([]byte, stateTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate state token: %w", err)
	}
	state = hex.EncodeToString(raw)

	pending := model.PendingConnect{
		State:     state,
		UserID:    userID,
		ExpiresAt: time.Now().Add(model.PendingConnectDuration),
	}
	if err := s.states.Create(ctx, pending); err != nil {
		return "", "", fmt.Errorf("failed to create pending connect: %w", err)
	}

	s.logger.Info("Connect service: authorization started",
		"user_id", userID)

	return s.provider.AuthCodeURL(state), state, nil
}

// HandleCallback validates the provider redirect and, on success, exchanges
// the code and persists the credential. The returned status is safe to embed
// in a redirect query string; err carries internal detail for logging only.
//
// The pending state row is consumed before any exchange is attempted, no
// matter the outcome, so a state token can never be replayed.
func (s *Connect) HandleCallback(ctx context.Context, params CallbackParams) (status string, err error) {
	if params.State == "" || params.CookieState == "" {
		return CallbackInvalidState, errors.New("state token missing from callback")
	}
	if subtle.ConstantTimeCompare([]byte(params.State), []byte(params.CookieState)) != 1 {
		return CallbackInvalidState, errors.New("state token does not match cookie")
	}

	pending, err := s.states.GetByState(ctx, params.State)
	if err != nil {
		return CallbackInvalidState, fmt.Errorf("failed to get pending connect: %w", err)
	}

	// Consume flips the row atomically: a concurrent callback racing on the
	// same state loses here rather than passing a stale replay check.
	if err := s.states.Consume(ctx, params.State); err != nil {
		if errors.Is(err, model.ErrStateConsumed) {
			return CallbackInvalidState, err
		}
		return CallbackProviderError, fmt.Errorf("failed to consume pending connect: %w", err)
	}

	if time.Now().After(pending.ExpiresAt) {
		return CallbackInvalidState, errors.New("state token expired")
	}

	if params.ProviderError != "" {
		return mapProviderError(params.ProviderError), fmt.Errorf("provider returned error %q", params.ProviderError)
	}
	if params.Code == "" {
		return CallbackMalformedRequest, errors.New("authorization code missing from callback")
	}

	bundle, email, err := s.provider.Exchange(ctx, params.Code)
	if err != nil {
		return CallbackExchangeFailed, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	account, err := s.credentials.StoreTokens(ctx, pending.UserID, email, bundle)
	if err != nil {
		return CallbackExchangeFailed, err
	}

	s.appendAudit(ctx, pending.UserID, model.AuditActionConnect, email, "")

	s.logger.Info("Connect service: account connected",
		"user_id", pending.UserID,
		"account_id", account.ID,
		"email", email)

	return CallbackConnected, nil
}

// EnsureFreshToken returns a usable access token for the account, refreshing
// it only when the stored expiry is within the refresh margin. A token with
// more than the margin remaining is returned without any provider call.
func (s *Connect) EnsureFreshToken(ctx context.Context, accountID uuid.UUID) (string, error) {
	bundle, err := s.credentials.GetTokens(ctx, accountID)
	if err != nil {
		return "", err
	}

	if bundle.ExpiresAt != nil && time.Until(*bundle.ExpiresAt) > refreshMargin {
		return bundle.AccessToken, nil
	}

	accessToken, expiry, err := s.provider.RefreshAccessToken(ctx, bundle.RefreshToken)
	if err != nil {
		s.logger.Error("Connect service: token refresh failed",
			"account_id", accountID,
			"error", err.Error())
		return "", model.ErrNeedsReconnect
	}

	var expiresAt *time.Time
	if !expiry.IsZero() {
		expiresAt = &expiry
	}

	if err := s.credentials.UpdateAccessToken(ctx, accountID, accessToken, expiresAt); err != nil {
		return "", err
	}

	return accessToken, nil
}

// RefreshAccount refreshes one account owned by ownerID. Ownership mismatch
// is indistinguishable from absence.
func (s *Connect) RefreshAccount(ctx context.Context, ownerID, accountID uuid.UUID) (RefreshResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return RefreshResult{}, err
	}
	if account.UserID != ownerID {
		return RefreshResult{}, model.ErrNotFound
	}

	return s.refreshOne(ctx, account), nil
}

// RefreshExpiring refreshes every account of ownerID expiring within the
// batch window. Per-account failures are collected in the tally, never
// aborting the batch.
func (s *Connect) RefreshExpiring(ctx context.Context, ownerID uuid.UUID) ([]RefreshResult, error) {
	accounts, err := s.accounts.GetExpiringBefore(ctx, ownerID, time.Now().Add(batchRefreshWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring accounts: %w", err)
	}

	results := make([]RefreshResult, 0, len(accounts))
	for _, account := range accounts {
		results = append(results, s.refreshOne(ctx, account))
	}

	return results, nil
}

func (s *Connect) refreshOne(ctx context.Context, account model.ConnectedAccount) RefreshResult {
	result := RefreshResult{AccountID: account.ID, Email: account.Email}

	if account.TokenExpiresAt != nil && time.Until(*account.TokenExpiresAt) > refreshMargin {
		result.Status = RefreshStatusSkipped
		return result
	}

	if _, err := s.EnsureFreshToken(ctx, account.ID); err != nil {
		s.logger.Error("Connect service: account refresh failed",
			"account_id", account.ID,
			"error", err.Error())
		result.Status = RefreshStatusFailed
		return result
	}

	result.Status = RefreshStatusRefreshed
	return result
}

// Disconnect revokes the account's access token at the provider on a
// best-effort basis, then deletes the local credential. Revocation failure is
// logged and never blocks the delete.
func (s *Connect) Disconnect(ctx context.Context, ownerID, accountID uuid.UUID) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.UserID != ownerID {
		return model.ErrNotFound
	}

	if bundle, err := s.credentials.GetTokens(ctx, accountID); err == nil {
		if err := s.provider.Revoke(ctx, bundle.AccessToken); err != nil {
			s.logger.Warn("Connect service: best-effort token revocation failed",
				"account_id", accountID,
				"error", err.Error())
		}
	}

	if err := s.credentials.Delete(ctx, accountID, ownerID); err != nil {
		return err
	}

	s.appendAudit(ctx, ownerID, model.AuditActionDisconnect, account.Email, "")

	s.logger.Info("Connect service: account disconnected",
		"user_id", ownerID,
		"account_id", accountID)

	return nil
}

// ListAccounts returns the user's connected accounts.
func (s *Connect) ListAccounts(ctx context.Context, userID uuid.UUID) ([]model.ConnectedAccount, error) {
	return s.accounts.GetByUserID(ctx, userID)
}

func (s *Connect) appendAudit(ctx context.Context, userID uuid.UUID, action model.AuditAction, email, detail string) {
	entry := model.AuditEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Action:       action,
		AccountEmail: email,
		Detail:       detail,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("Connect service: failed to append audit entry",
			"action", action,
			"error", err.Error())
	}
}

func mapProviderError(code string) string {
	switch code {
	case "access_denied":
		return CallbackConsentDenied
	case "invalid_request", "invalid_scope", "unsupported_response_type":
		return CallbackMalformedRequest
	case "invalid_client", "unauthorized_client":
		return CallbackClientMisconfigured
	default:
		return CallbackProviderError
	}
}
