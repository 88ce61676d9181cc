package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
)

// SearchService defines proxied mailbox search and export operations.
type SearchService interface {
	Run(ctx context.Context, callerID, accountID uuid.UUID, query model.SearchQuery) (model.SearchResult, error)
	Export(ctx context.Context, callerID, accountID uuid.UUID, query model.SearchQuery) (key string, count int, err error)
	OpenExport(ctx context.Context, callerID uuid.UUID, key string) (io.ReadCloser, error)
}

// Search handles HTTP endpoints for mailbox search.
type Search struct {
	searchService  SearchService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewSearch creates a new Search handler.
func NewSearch(searchService SearchService, contextManager model.ContextManager, logger *logger.Logger) *Search {
	return &Search{
		searchService:  searchService,
		contextManager: contextManager,
		logger:         logger,
	}
}

type searchRequest struct {
	AccountID  uuid.UUID `json:"accountId" binding:"required"`
	Query      string    `json:"query"`
	Label      string    `json:"label"`
	MaxResults int64     `json:"maxResults"`
	PageToken  string    `json:"pageToken"`
}

// Run executes one page of a mailbox search against an account the caller
// owns or has been granted access to.
func (h *Search) Run(c *gin.Context) {
	callerID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierrors.NewErrValidation("accountId is required"))
		return
	}

	result, err := h.searchService.Run(c.Request.Context(), callerID, req.AccountID, model.SearchQuery{
		Query:      req.Query,
		Label:      req.Label,
		MaxResults: req.MaxResults,
		PageToken:  req.PageToken,
	})
	if err != nil {
		h.logger.Error("Search handler: search failed",
			"caller_id", callerID,
			"account_id", req.AccountID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":      result.Messages,
		"nextPageToken": result.NextPageToken,
	})
}

// Export runs a search to exhaustion and archives the matches as NDJSON in
// object storage, returning the archive key.
func (h *Search) Export(c *gin.Context) {
	callerID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierrors.NewErrValidation("accountId is required"))
		return
	}

	key, count, err := h.searchService.Export(c.Request.Context(), callerID, req.AccountID, model.SearchQuery{
		Query:      req.Query,
		Label:      req.Label,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		h.logger.Error("Search handler: export failed",
			"caller_id", callerID,
			"account_id", req.AccountID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"key": key, "count": count})
}

// DownloadExport streams a previously created export archive.
func (h *Search) DownloadExport(c *gin.Context) {
	callerID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	// Wildcard params keep a leading slash; export keys don't.
	key := strings.TrimPrefix(c.Param("key"), "/")
	reader, err := h.searchService.OpenExport(c.Request.Context(), callerID, key)
	if err != nil {
		h.logger.Error("Search handler: export download failed",
			"caller_id", callerID,
			"key", key,
			"error", err.Error())
		handleError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.logger.Error("Search handler: export stream interrupted",
			"key", key,
			"error", err.Error())
	}
}
