package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

// AuditService reads a user's audit trail.
type AuditService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.AuditEntry, error)
}

// Audit handles HTTP endpoints for the audit trail.
type Audit struct {
	auditService   AuditService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAudit creates a new Audit handler.
func NewAudit(auditService AuditService, contextManager model.ContextManager, logger *logger.Logger) *Audit {
	return &Audit{
		auditService:   auditService,
		contextManager: contextManager,
		logger:         logger,
	}
}

type auditEntryResponse struct {
	ID           uuid.UUID `json:"id"`
	Action       string    `json:"action"`
	AccountEmail string    `json:"accountEmail"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// List returns the caller's most recent audit entries, newest first.
func (h *Audit) List(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	entries, err := h.auditService.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Audit handler: list failed",
			"user_id", userID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	response := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, auditEntryResponse{
			ID:           entry.ID,
			Action:       string(entry.Action),
			AccountEmail: entry.AccountEmail,
			Detail:       entry.Detail,
			CreatedAt:    entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"entries": response})
}
