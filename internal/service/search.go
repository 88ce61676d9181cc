package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

// Search proxies mailbox queries to the provider on behalf of owners and
// grant holders, and writes export archives to object storage.
type Search struct {
	connect  *Connect
	sharing  *Sharing
	accounts model.AccountStore
	provider model.MailProvider
	storage  model.Storage
	audit    model.AuditStore
	logger   *logger.Logger
}

func NewSearch(
	connect *Connect,
	sharing *Sharing,
	accounts model.AccountStore,
	provider model.MailProvider,
	storage model.Storage,
	audit model.AuditStore,
	logger *logger.Logger,
) *Search {
	return &Search{
		connect:  connect,
		sharing:  sharing,
		accounts: accounts,
		provider: provider,
		storage:  storage,
		audit:    audit,
		logger:   logger,
	}
}

// Run executes one search. The caller must be the account owner or hold a
// viewer grant; anyone else gets a forbidden outcome without learning whether
// the account exists.
func (s *Search) Run(ctx context.Context, callerID, accountID uuid.UUID, query model.SearchQuery) (model.SearchResult, error) {
	allowed, err := s.sharing.CheckViewerPermission(ctx, accountID, callerID)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("failed to check viewer permission: %w", err)
	}
	if !allowed {
		return model.SearchResult{}, apierrors.NewErrForbidden()
	}

	accessToken, err := s.connect.EnsureFreshToken(ctx, accountID)
	if err != nil {
		return model.SearchResult{}, err
	}

	result, err := s.provider.Search(ctx, accessToken, query)
	if err != nil {
		return model.SearchResult{}, err
	}

	return result, nil
}

// Export runs a search and writes the matched message metadata to object
// storage as NDJSON. The object key is scoped under the caller so downloads
// can be ownership-checked by prefix alone.
func (s *Search) Export(ctx context.Context, callerID, accountID uuid.UUID, query model.SearchQuery) (key string, count int, err error) {
	result, err := s.Run(ctx, callerID, accountID, query)
	if err != nil {
		return "", 0, err
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, message := range result.Messages {
		if err := encoder.Encode(message); err != nil {
			return "", 0, fmt.Errorf("failed to encode export message: %w", err)
		}
	}

	key = exportKey(callerID, accountID)
	if err := s.storage.Upload(ctx, key, &buf); err != nil {
		return "", 0, fmt.Errorf("failed to upload export archive: %w", err)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err == nil {
		s.appendAudit(ctx, callerID, account.Email, key)
	}

	s.logger.Info("Search service: export archived",
		"user_id", callerID,
		"account_id", accountID,
		"key", key,
		"messages", len(result.Messages))

	return key, len(result.Messages), nil
}

// OpenExport streams a previously written archive back to its owner. Keys
// outside the caller's prefix are reported as absent.
func (s *Search) OpenExport(ctx context.Context, callerID uuid.UUID, key string) (io.ReadCloser, error) {
	if !ownsExportKey(callerID, key) {
		return nil, model.ErrNotFound
	}

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check export archive: %w", err)
	}
	if !exists {
		return nil, model.ErrNotFound
	}

	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download export archive: %w", err)
	}

	return reader, nil
}

func exportKey(callerID, accountID uuid.UUID) string {
	return fmt.Sprintf("exports/%s/%s/%d.ndjson", callerID, accountID, time.Now().UnixNano())
}

func ownsExportKey(callerID uuid.UUID, key string) bool {
	prefix := fmt.Sprintf("exports/%s/", callerID)
	return len(key) > len(prefix) && key[:len(prefix)] == prefix
}

func (s *Search) appendAudit(ctx context.Context, userID uuid.UUID, email, detail string) {
	entry := model.AuditEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Action:       model.AuditActionExport,
		AccountEmail: email,
		Detail:       detail,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("Search service: failed to append audit entry",
			"error", err.Error())
	}
}
