package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
	"github.com/sendlens/sendlens-server/internal/service"
)

// stateCookieName carries the OAuth state token across the provider redirect.
const stateCookieName = "connect_state"

// ConnectService drives the OAuth connection lifecycle.
type ConnectService interface {
	Start(ctx context.Context, userID uuid.UUID) (authURL string, state string, err error)
	HandleCallback(ctx context.Context, params service.CallbackParams) (status string, err error)
	RefreshAccount(ctx context.Context, ownerID, accountID uuid.UUID) (service.RefreshResult, error)
	RefreshExpiring(ctx context.Context, ownerID uuid.UUID) ([]service.RefreshResult, error)
	Disconnect(ctx context.Context, ownerID, accountID uuid.UUID) error
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]model.ConnectedAccount, error)
}

// Gmail handles HTTP endpoints for the Gmail connection lifecycle.
type Gmail struct {
	connectService ConnectService
	contextManager model.ContextManager
	settingsURL    string
	secureCookies  bool
	logger         *logger.Logger
}

// NewGmail creates a new Gmail handler. settingsURL is the frontend page the
// callback redirects back to; secureCookies must be true whenever the server
// is reached over HTTPS.
func NewGmail(connectService ConnectService, contextManager model.ContextManager, settingsURL string, secureCookies bool, logger *logger.Logger) *Gmail {
	return &Gmail{
		connectService: connectService,
		contextManager: contextManager,
		settingsURL:    settingsURL,
		secureCookies:  secureCookies,
		logger:         logger,
	}
}

type accountResponse struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type refreshResultResponse struct {
	AccountID uuid.UUID `json:"accountId"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
}

type accountRequest struct {
	AccountID uuid.UUID `json:"accountId" binding:"required"`
}

// AuthURL starts an authorization attempt: mints a state token, sets it as an
// http-only cookie and returns the provider authorization URL.
func (h *Gmail) AuthURL(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	authURL, state, err := h.connectService.Start(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Gmail handler: failed to start authorization",
			"user_id", userID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	h.setStateCookie(c, state, int(model.PendingConnectDuration.Seconds()))

	c.JSON(http.StatusOK, gin.H{"authUrl": authURL})
}

// Callback receives the provider redirect. The caller is a browser without a
// bearer token, so identity comes from the server-side state binding; the
// outcome is delivered as a query-string status on the settings page redirect.
func (h *Gmail) Callback(c *gin.Context) {
	cookieState, err := c.Cookie(stateCookieName)
	if err != nil {
		cookieState = ""
	}
	h.setStateCookie(c, "", -1)

	params := service.CallbackParams{
		State:         c.Query("state"),
		CookieState:   cookieState,
		Code:          c.Query("code"),
		ProviderError: c.Query("error"),
	}

	status, err := h.connectService.HandleCallback(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("Gmail handler: callback failed",
			"status", status,
			"error", err.Error())
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s?gmail=%s", h.settingsURL, status))
}

// Disconnect revokes and removes a connected account.
func (h *Gmail) Disconnect(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, apierrors.NewErrValidation("accountId is required"))
		return
	}

	if err := h.connectService.Disconnect(c.Request.Context(), userID, req.AccountID); err != nil {
		h.logger.Error("Gmail handler: disconnect failed",
			"user_id", userID,
			"account_id", req.AccountID,
			"error", err.Error())
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Refresh refreshes one account when accountId is supplied, otherwise every
// account of the caller expiring within the batch window. The response is a
// per-account tally.
func (h *Gmail) Refresh(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	var req struct {
		AccountID *uuid.UUID `json:"accountId"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handleError(c, apierrors.NewErrValidation("accountId must be a valid UUID"))
			return
		}
	}

	var results []service.RefreshResult

	if req.AccountID != nil {
		result, err := h.connectService.RefreshAccount(c.Request.Context(), userID, *req.AccountID)
		if err != nil {
			handleError(c, err)
			return
		}
		results = []service.RefreshResult{result}
	} else {
		var err error
		results, err = h.connectService.RefreshExpiring(c.Request.Context(), userID)
		if err != nil {
			h.logger.Error("Gmail handler: batch refresh failed",
				"user_id", userID,
				"error", err.Error())
			handleError(c, err)
			return
		}
	}

	response := make([]refreshResultResponse, 0, len(results))
	for _, r := range results {
		response = append(response, refreshResultResponse{AccountID: r.AccountID, Email: r.Email, Status: r.Status})
	}

	c.JSON(http.StatusOK, gin.H{"results": response})
}

// Accounts lists the caller's connected accounts. Token material never
// appears in the response.
func (h *Gmail) Accounts(c *gin.Context) {
	userID, ok := h.contextManager.GetUserIDFromContext(c.Request.Context())
	if !ok {
		handleError(c, apierrors.NewErrMissingAuthorizationToken())
		return
	}

	accounts, err := h.connectService.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		response = append(response, accountResponse{
			ID:             a.ID,
			Email:          a.Email,
			TokenExpiresAt: a.TokenExpiresAt,
			CreatedAt:      a.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"accounts": response})
}

func (h *Gmail) setStateCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     "/api/gmail",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
