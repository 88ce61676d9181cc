package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GrantStore defines persistence operations for sharing grants.
type GrantStore interface {
	Create(ctx context.Context, grant PermissionGrant) (PermissionGrant, error)
	Delete(ctx context.Context, accountID, viewerID uuid.UUID) error
	Exists(ctx context.Context, accountID, viewerID uuid.UUID) (bool, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]PermissionGrant, error)
}

// PermissionGrant allows a non-owner to view a connected account's data.
// Grants are unique per (account, viewer) pair.
type PermissionGrant struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	ViewerID  uuid.UUID
	CreatedAt time.Time
}

// Viewer is the resolved identity of a grant holder.
type Viewer struct {
	ID    uuid.UUID
	Email string
	Name  string
}
