package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendlens/sendlens-server/internal/api/http/request"
	"github.com/sendlens/sendlens-server/internal/mocks"
	"github.com/sendlens/sendlens-server/internal/testutil"
)

type tokenServiceStub struct {
	manager *mocks.TokenManager
}

func (s *tokenServiceStub) GetUserID(_ context.Context, token string) (uuid.UUID, error) {
	return s.manager.ParseAccessToken(token)
}

func newAuthTestEngine(manager *mocks.TokenManager) (*gin.Engine, *uuid.UUID) {
	gin.SetMode(gin.TestMode)
	ctxMgr := request.NewManager()
	m := NewAuthenticate(&tokenServiceStub{manager: manager}, ctxMgr, testutil.MakeNoopLogger())

	var seen uuid.UUID
	engine := gin.New()
	engine.GET("/protected", m.Handle, func(c *gin.Context) {
		userID, ok := ctxMgr.GetUserIDFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		seen = userID
		c.Status(http.StatusOK)
	})
	return engine, &seen
}

func TestAuthenticate_ValidToken(t *testing.T) {
	userID := uuid.New()
	manager := &mocks.TokenManager{}
	manager.On("ParseAccessToken", "valid-token").Return(userID, nil).Once()

	engine, seen := newAuthTestEngine(manager)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, *seen)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	engine, _ := newAuthTestEngine(&mocks.TokenManager{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing_token")
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	manager := &mocks.TokenManager{}
	manager.On("ParseAccessToken", "garbage").Return(uuid.Nil, assert.AnError).Once()

	engine, _ := newAuthTestEngine(manager)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_token")
}
