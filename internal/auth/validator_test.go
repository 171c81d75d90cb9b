package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collab-chat-service/internal/mocks"
	"collab-chat-service/internal/models"
	"collab-chat-service/internal/repositories"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestResolveValidToken(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	v := NewValidator(testSecret, users)

	users.On("GetUser", mock.Anything, 42).Return(models.User{ID: 42, FullName: "Ada", Email: "ada@example.com"}, nil).Once()

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	identity := v.Resolve(context.Background(), token)
	assert.Equal(t, Identity{UserID: 42, Name: "Ada", Email: "ada@example.com"}, identity)
	assert.False(t, identity.IsAnonymous())
	users.AssertExpectations(t)
}

func TestResolveExpiredToken(t *testing.T) {
	v := NewValidator(testSecret, new(mocks.UserRepositoryMock))

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	assert.True(t, v.Resolve(context.Background(), token).IsAnonymous())
}

func TestResolveWrongSignature(t *testing.T) {
	v := NewValidator(testSecret, new(mocks.UserRepositoryMock))

	token := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	assert.True(t, v.Resolve(context.Background(), token).IsAnonymous())
}

func TestResolveGarbageToken(t *testing.T) {
	v := NewValidator(testSecret, new(mocks.UserRepositoryMock))
	assert.True(t, v.Resolve(context.Background(), "not.a.token").IsAnonymous())
}

func TestResolveEmptyToken(t *testing.T) {
	v := NewValidator(testSecret, new(mocks.UserRepositoryMock))
	assert.True(t, v.Resolve(context.Background(), "").IsAnonymous())
}

func TestResolveMissingUserClaim(t *testing.T) {
	v := NewValidator(testSecret, new(mocks.UserRepositoryMock))

	token := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	assert.True(t, v.Resolve(context.Background(), token).IsAnonymous())
}

func TestResolveUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	v := NewValidator(testSecret, users)

	users.On("GetUser", mock.Anything, 42).Return(models.User{}, repositories.ErrUserNotFound).Once()

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	assert.True(t, v.Resolve(context.Background(), token).IsAnonymous())
	users.AssertExpectations(t)
}
