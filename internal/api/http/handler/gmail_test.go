package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sendlens/sendlens-server/internal/api/http/request"
	"github.com/sendlens/sendlens-server/internal/model"
	"github.com/sendlens/sendlens-server/internal/service"
	"github.com/sendlens/sendlens-server/internal/testutil"
)

type connectServiceMock struct {
	mock.Mock
}

func (m *connectServiceMock) Start(ctx context.Context, userID uuid.UUID) (string, string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *connectServiceMock) HandleCallback(ctx context.Context, params service.CallbackParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *connectServiceMock) RefreshAccount(ctx context.Context, ownerID, accountID uuid.UUID) (service.RefreshResult, error) {
	args := m.Called(ctx, ownerID, accountID)
	return args.Get(0).(service.RefreshResult), args.Error(1)
}

func (m *connectServiceMock) RefreshExpiring(ctx context.Context, ownerID uuid.UUID) ([]service.RefreshResult, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.RefreshResult), args.Error(1)
}

func (m *connectServiceMock) Disconnect(ctx context.Context, ownerID, accountID uuid.UUID) error {
	args := m.Called(ctx, ownerID, accountID)
	return args.Error(0)
}

func (m *connectServiceMock) ListAccounts(ctx context.Context, userID uuid.UUID) ([]model.ConnectedAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConnectedAccount), args.Error(1)
}

const testSettingsURL = "http://localhost:3000/settings"

func newGmailTestRouter(svc *connectServiceMock, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ctxMgr := request.NewManager()
	h := NewGmail(svc, ctxMgr, testSettingsURL, false, testutil.MakeNoopLogger())

	engine := gin.New()
	// Simulates the authenticate middleware.
	inject := func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Request = c.Request.WithContext(ctxMgr.SetUserIDToContext(c.Request.Context(), userID))
		}
		c.Next()
	}
	engine.GET("/api/gmail/auth-url", inject, h.AuthURL)
	engine.GET("/api/gmail/callback", h.Callback)
	engine.POST("/api/gmail/disconnect", inject, h.Disconnect)
	engine.POST("/api/gmail/refresh", inject, h.Refresh)
	engine.GET("/api/gmail/accounts", inject, h.Accounts)
	return engine
}

func TestGmail_AuthURL_SetsStateCookie(t *testing.T) {
	userID := uuid.New()
	svc := &connectServiceMock{}
	svc.On("Start", mock.Anything, userID).Return("https://provider/auth?state=abc", "abc", nil).Once()

	engine := newGmailTestRouter(svc, userID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/gmail/auth-url", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		AuthURL string `json:"authUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://provider/auth?state=abc", body.AuthURL)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookieName, cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestGmail_AuthURL_Unauthenticated(t *testing.T) {
	engine := newGmailTestRouter(&connectServiceMock{}, uuid.Nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/gmail/auth-url", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGmail_Callback_RedirectsWithStatus(t *testing.T) {
	svc := &connectServiceMock{}
	svc.On("HandleCallback", mock.Anything, service.CallbackParams{
		State:       "abc",
		CookieState: "abc",
		Code:        "auth-code",
	}).Return(service.CallbackConnected, nil).Once()

	engine := newGmailTestRouter(svc, uuid.Nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/gmail/callback?state=abc&code=auth-code", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, testSettingsURL+"?gmail=connected", w.Header().Get("Location"))

	// The state cookie is cleared regardless of outcome.
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestGmail_Callback_MissingCookie(t *testing.T) {
	svc := &connectServiceMock{}
	svc.On("HandleCallback", mock.Anything, service.CallbackParams{
		State: "abc",
		Code:  "auth-code",
	}).Return(service.CallbackInvalidState, assert.AnError).Once()

	engine := newGmailTestRouter(svc, uuid.Nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/gmail/callback?state=abc&code=auth-code", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, testSettingsURL+"?gmail=invalid_state", w.Header().Get("Location"))
}

func TestGmail_Accounts_OmitsTokenMaterial(t *testing.T) {
	userID := uuid.New()
	expiry := time.Now().Add(time.Hour)

	svc := &connectServiceMock{}
	svc.On("ListAccounts", mock.Anything, userID).Return([]model.ConnectedAccount{
		{
			ID:                    uuid.New(),
			UserID:                userID,
			Email:                 "user@example.com",
			EncryptedAccessToken:  "sealed-access",
			EncryptedRefreshToken: "sealed-refresh",
			TokenExpiresAt:        &expiry,
		},
	}, nil).Once()

	engine := newGmailTestRouter(svc, userID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/gmail/accounts", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user@example.com")
	assert.NotContains(t, w.Body.String(), "sealed-access")
	assert.NotContains(t, w.Body.String(), "sealed-refresh")
}

func TestGmail_Disconnect(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()

	svc := &connectServiceMock{}
	svc.On("Disconnect", mock.Anything, userID, accountID).Return(nil).Once()

	engine := newGmailTestRouter(svc, userID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gmail/disconnect", strings.NewReader(`{"accountId":"`+accountID.String()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true}`, w.Body.String())
}

func TestGmail_Disconnect_NotFound(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()

	svc := &connectServiceMock{}
	svc.On("Disconnect", mock.Anything, userID, accountID).Return(model.ErrNotFound).Once()

	engine := newGmailTestRouter(svc, userID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gmail/disconnect", strings.NewReader(`{"accountId":"`+accountID.String()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGmail_Refresh_Batch(t *testing.T) {
	userID := uuid.New()

	svc := &connectServiceMock{}
	svc.On("RefreshExpiring", mock.Anything, userID).Return([]service.RefreshResult{
		{AccountID: uuid.New(), Email: "a@example.com", Status: service.RefreshStatusRefreshed},
		{AccountID: uuid.New(), Email: "b@example.com", Status: service.RefreshStatusFailed},
	}, nil).Once()

	engine := newGmailTestRouter(svc, userID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gmail/refresh", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), service.RefreshStatusRefreshed)
	assert.Contains(t, w.Body.String(), service.RefreshStatusFailed)
}

func TestGmail_Refresh_SingleAccount(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()

	svc := &connectServiceMock{}
	svc.On("RefreshAccount", mock.Anything, userID, accountID).Return(service.RefreshResult{
		AccountID: accountID,
		Email:     "a@example.com",
		Status:    service.RefreshStatusSkipped,
	}, nil).Once()

	engine := newGmailTestRouter(svc, userID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gmail/refresh", strings.NewReader(`{"accountId":"`+accountID.String()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), accountID.String())
	assert.Contains(t, w.Body.String(), service.RefreshStatusSkipped)
	svc.AssertNotCalled(t, "RefreshExpiring", mock.Anything, mock.Anything)
}

func TestGmail_Refresh_BadAccountID(t *testing.T) {
	engine := newGmailTestRouter(&connectServiceMock{}, uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gmail/refresh", strings.NewReader(`{"accountId":"not-a-uuid"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
