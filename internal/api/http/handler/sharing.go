package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

// SharingService defines viewer grant operations.
type SharingService interface {
	AddViewer(ctx context.Context, accountID, ownerID uuid.UUID, viewerEmail string) (model.Viewer, error)
	RemoveViewer(ctx context.Context, accountID, ownerID, viewerID uuid.UUID) error
	ListViewers(ctx context.Context, accountID, ownerID uuid.UUID) ([]model.Viewer, error)
}

// Sharing handles HTTP endpoints for account sharing.
type Sharing struct {
	sharingService SharingService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewSharing creates a new Sharing handler.
func NewSharing(sharingService SharingService, contextManager model.ContextManager, logger *logger.Logger) *Sharing {
	return &Sharing{
		sharingService: sharingService,
		contextManager: contextManager,
		logger:         logger,
	}
}

type addViewerRequest struct {
	AccountID   uuid.UUID `json:"accountId" binding:"required"`
	ViewerEmail string    `json:"viewerEmail" binding:"required"`
}

type removeViewerRequest struct {
	AccountID uuid.UUID `json:"accountId" binding:"required"`
	ViewerID  uuid.UUID `json:"viewerId" binding:"required"`
}

type viewerResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// Add grants a registered user view access to an account owned by the caller.
func (h *Sharing) Add(c *gin.Context) {
	ownerID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	var req addViewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierrors.NewErrValidation("accountId and viewerEmail are required"))
		return
	}

	viewer, err := h.sharingService.AddViewer(c.Request.Context(), req.AccountID, ownerID, req.ViewerEmail)
	if err != nil {
		h.logger.Error("Sharing handler: add viewer failed",
			"owner_id", ownerID,
			"account_id", req.AccountID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"viewer":  viewerResponse{ID: viewer.ID, Email: viewer.Email, Name: viewer.Name},
	})
}

// Remove revokes a viewer's grant. Removing an absent grant succeeds.
func (h *Sharing) Remove(c *gin.Context) {
	ownerID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	var req removeViewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierrors.NewErrValidation("accountId and viewerId are required"))
		return
	}

	if err := h.sharingService.RemoveViewer(c.Request.Context(), req.AccountID, ownerID, req.ViewerID); err != nil {
		h.logger.Error("Sharing handler: remove viewer failed",
			"owner_id", ownerID,
			"account_id", req.AccountID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// List returns the viewers of an account owned by the caller.
func (h *Sharing) List(c *gin.Context) {
	ownerID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	accountID, err := uuid.Parse(c.Query("accountId"))
	if err != nil {
		handleError(c, apierrors.NewErrValidation("accountId must be a valid UUID"))
		return
	}

	viewers, err := h.sharingService.ListViewers(c.Request.Context(), accountID, ownerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response := make([]viewerResponse, 0, len(viewers))
	for _, v := range viewers {
		response = append(response, viewerResponse{ID: v.ID, Email: v.Email, Name: v.Name})
	}

	c.JSON(http.StatusOK, gin.H{"viewers": response})
}
