package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

const auditPageSize = 100

// Audit reads a user's audit trail.
type Audit struct {
	store  model.AuditStore
	logger *logger.Logger
}

func NewAudit(store model.AuditStore, logger *logger.Logger) *Audit {
	return &Audit{store: store, logger: logger}
}

// List returns the caller's most recent entries.
func (s *Audit) List(ctx context.Context, userID uuid.UUID) ([]model.AuditEntry, error) {
	return s.store.GetByUserID(ctx, userID, auditPageSize)
}
