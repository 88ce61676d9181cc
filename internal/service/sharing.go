package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

// Sharing implements the owner/viewer permission model over connected
// accounts. Every ownership check fails closed: an absent account and an
// owner mismatch both surface as not-found, so existence never leaks to
// non-owners.
type Sharing struct {
	accounts model.AccountStore
	grants   model.GrantStore
	users    model.UserStore
	audit    model.AuditStore
	logger   *logger.Logger
}

func NewSharing(
	accounts model.AccountStore,
	grants model.GrantStore,
	users model.UserStore,
	audit model.AuditStore,
	logger *logger.Logger,
) *Sharing {
	return &Sharing{
		accounts: accounts,
		grants:   grants,
		users:    users,
		audit:    audit,
		logger:   logger,
	}
}

// CheckViewerPermission reports whether userID may view the account: either
// as its owner or through an active grant.
func (s *Sharing) CheckViewerPermission(ctx context.Context, accountID, userID uuid.UUID) (bool, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if account.UserID == userID {
		return true, nil
	}

	return s.grants.Exists(ctx, accountID, userID)
}

// AddViewer grants viewerEmail access to the account. The email must belong
// to a registered user, self-shares are rejected, and re-adding an existing
// viewer returns the existing grant.
func (s *Sharing) AddViewer(ctx context.Context, accountID, ownerID uuid.UUID, viewerEmail string) (model.Viewer, error) {
	account, err := s.ownedAccount(ctx, accountID, ownerID)
	if err != nil {
		return model.Viewer{}, err
	}

	email := strings.ToLower(strings.TrimSpace(viewerEmail))
	if email == "" {
		return model.Viewer{}, apierrors.NewErrValidation("viewer email is required")
	}

	viewer, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.Viewer{}, apierrors.NewErrUserNotRegistered(email)
	}
	if err != nil {
		return model.Viewer{}, fmt.Errorf("failed to resolve viewer by email: %w", err)
	}

	if viewer.ID == ownerID {
		return model.Viewer{}, apierrors.NewErrSelfShare()
	}

	grant := model.PermissionGrant{
		ID:        uuid.New(),
		AccountID: accountID,
		ViewerID:  viewer.ID,
	}
	if _, err := s.grants.Create(ctx, grant); err != nil {
		return model.Viewer{}, fmt.Errorf("failed to create grant: %w", err)
	}

	s.appendAudit(ctx, ownerID, model.AuditActionShare, account.Email, email)

	s.logger.Info("Sharing service: viewer added",
		"account_id", accountID,
		"viewer_id", viewer.ID)

	return model.Viewer{ID: viewer.ID, Email: viewer.Email, Name: viewer.Name}, nil
}

// RemoveViewer deletes the grant; removing an absent grant succeeds.
func (s *Sharing) RemoveViewer(ctx context.Context, accountID, ownerID, viewerID uuid.UUID) error {
	account, err := s.ownedAccount(ctx, accountID, ownerID)
	if err != nil {
		return err
	}

	if err := s.grants.Delete(ctx, accountID, viewerID); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	s.appendAudit(ctx, ownerID, model.AuditActionUnshare, account.Email, viewerID.String())

	return nil
}

// ListViewers resolves the identity of every grant holder on the account.
// Resolution goes through the privileged user store; a grant whose user row
// has since been deleted is skipped.
func (s *Sharing) ListViewers(ctx context.Context, accountID, ownerID uuid.UUID) ([]model.Viewer, error) {
	if _, err := s.ownedAccount(ctx, accountID, ownerID); err != nil {
		return nil, err
	}

	grants, err := s.grants.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}

	viewers := make([]model.Viewer, 0, len(grants))
	for _, grant := range grants {
		user, err := s.users.GetByID(ctx, grant.ViewerID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve viewer: %w", err)
		}
		viewers = append(viewers, model.Viewer{ID: user.ID, Email: user.Email, Name: user.Name})
	}

	return viewers, nil
}

// ownedAccount loads the account only when ownerID owns it; any mismatch is
// not-found.
func (s *Sharing) ownedAccount(ctx context.Context, accountID, ownerID uuid.UUID) (model.ConnectedAccount, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.ConnectedAccount{}, err
	}
	if account.UserID != ownerID {
		return model.ConnectedAccount{}, model.ErrNotFound
	}
	return account, nil
}

func (s *Sharing) appendAudit(ctx context.Context, userID uuid.UUID, action model.AuditAction, email, detail string) {
	entry := model.AuditEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Action:       action,
		AccountEmail: email,
		Detail:       detail,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("Sharing service: failed to append audit entry",
			"action", action,
			"error", err.Error())
	}
}
