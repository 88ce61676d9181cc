package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditStore appends and reads audit events. Append failures must never fail
// the user-facing operation that produced them.
type AuditStore interface {
	Append(ctx context.Context, entry AuditEntry) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]AuditEntry, error)
}

// AuditAction enumerates audited events.
type AuditAction string

const (
	AuditActionConnect    AuditAction = "connect"
	AuditActionDisconnect AuditAction = "disconnect"
	AuditActionShare      AuditAction = "share"
	AuditActionUnshare    AuditAction = "unshare"
	AuditActionExport     AuditAction = "export"
)

// AuditEntry is one append-only audit event.
type AuditEntry struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Action       AuditAction
	AccountEmail string
	Detail       string
	CreatedAt    time.Time
}
