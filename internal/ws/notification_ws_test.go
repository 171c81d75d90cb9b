package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-chat-service/internal/auth"
	"collab-chat-service/internal/mocks"
)

func TestNotificationHandshakeRejectsAnonymous(t *testing.T) {
	b := new(mocks.BusMock)
	validator := auth.NewValidator("secret", new(mocks.UserRepositoryMock))
	h := NewNotificationSocketHandler(b, validator)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/notifications", h.Handle)

	req := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	b.AssertNotCalled(t, "Join", mock.Anything, mock.Anything)
}
