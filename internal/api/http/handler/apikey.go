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

// APIKeyService defines stored provider key operations.
type APIKeyService interface {
	Create(ctx context.Context, userID uuid.UUID, providerName, label, plainKey string, makeDefault bool) (model.StoredAPIKey, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.StoredAPIKey, error)
	Delete(ctx context.Context, userID, keyID uuid.UUID) error
	SetDefault(ctx context.Context, userID, keyID uuid.UUID) error
	Validate(ctx context.Context, userID, keyID uuid.UUID) (model.ValidationStatus, error)
}

// APIKeys handles HTTP endpoints for stored third-party API keys.
type APIKeys struct {
	keyService     APIKeyService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAPIKeys creates a new APIKeys handler.
func NewAPIKeys(keyService APIKeyService, contextManager model.ContextManager, logger *logger.Logger) *APIKeys {
	return &APIKeys{
		keyService:     keyService,
		contextManager: contextManager,
		logger:         logger,
	}
}

type createKeyRequest struct {
	Provider    string `json:"provider" binding:"required"`
	Label       string `json:"label"`
	Key         string `json:"key" binding:"required"`
	MakeDefault bool   `json:"makeDefault"`
}

// apiKeyResponse never carries the encrypted key; the hint is all a client
// ever sees after creation.
type apiKeyResponse struct {
	ID               uuid.UUID  `json:"id"`
	Provider         string     `json:"provider"`
	Label            string     `json:"label"`
	KeyHint          string     `json:"keyHint"`
	IsDefault        bool       `json:"isDefault"`
	ValidationStatus string     `json:"validationStatus"`
	ValidatedAt      *time.Time `json:"validatedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func toAPIKeyResponse(key model.StoredAPIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:               key.ID,
		Provider:         key.Provider,
		Label:            key.Label,
		KeyHint:          key.KeyHint,
		IsDefault:        key.IsDefault,
		ValidationStatus: string(key.ValidationStatus),
		ValidatedAt:      key.ValidatedAt,
		CreatedAt:        key.CreatedAt,
	}
}

// Create stores a new provider key for the caller.
func (h *APIKeys) Create(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierrors.NewErrValidation("provider and key are required"))
		return
	}

	key, err := h.keyService.Create(c.Request.Context(), userID, req.Provider, req.Label, req.Key, req.MakeDefault)
	if err != nil {
		h.logger.Error("APIKeys handler: create failed",
			"user_id", userID,
			"provider", req.Provider,
			"error", err.Error())
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAPIKeyResponse(key))
}

// List returns the caller's stored keys.
func (h *APIKeys) List(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	keys, err := h.keyService.List(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response := make([]apiKeyResponse, 0, len(keys))
	for _, key := range keys {
		response = append(response, toAPIKeyResponse(key))
	}

	c.JSON(http.StatusOK, gin.H{"keys": response})
}

// Delete removes a stored key owned by the caller.
func (h *APIKeys) Delete(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handleError(c, apierrors.NewErrValidation("key id must be a valid UUID"))
		return
	}

	if err := h.keyService.Delete(c.Request.Context(), userID, keyID); err != nil {
		h.logger.Error("APIKeys handler: delete failed",
			"user_id", userID,
			"key_id", keyID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetDefault marks one key as the default for its provider.
func (h *APIKeys) SetDefault(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handleError(c, apierrors.NewErrValidation("key id must be a valid UUID"))
		return
	}

	if err := h.keyService.SetDefault(c.Request.Context(), userID, keyID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Validate checks a stored key against its provider and returns the outcome.
func (h *APIKeys) Validate(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handleError(c, apierrors.NewErrValidation("key id must be a valid UUID"))
		return
	}

	status, err := h.keyService.Validate(c.Request.Context(), userID, keyID)
	if err != nil {
		h.logger.Error("APIKeys handler: validation failed",
			"user_id", userID,
			"key_id", keyID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"validation_status": string(status)})
}
