package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"collab-chat-service/internal/repositories"
)

// Identity is a resolved user. The zero value is the anonymous sentinel.
type Identity struct {
	UserID int
	Name   string
	Email  string
}

// Anonymous is the identity returned for every failed validation.
var Anonymous = Identity{}

// IsAnonymous reports whether the identity failed to resolve.
func (i Identity) IsAnonymous() bool {
	return i.UserID == 0
}

// Validator resolves bearer tokens to user identities. It fails closed:
// parse errors, bad signatures, expiry and unknown users all resolve to
// Anonymous, never to an error.
type Validator struct {
	secret []byte
	users  repositories.UserRepository
}

// NewValidator constructs a Validator.
func NewValidator(secret string, users repositories.UserRepository) *Validator {
	return &Validator{secret: []byte(secret), users: users}
}

// Resolve validates a token and looks up the user it names. The user lookup
// is the only blocking step.
func (v *Validator) Resolve(ctx context.Context, token string) Identity {
	if token == "" {
		return Anonymous
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Anonymous
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Anonymous
	}
	raw, ok := claims["user_id"].(float64)
	if !ok || raw <= 0 {
		return Anonymous
	}

	user, err := v.users.GetUser(ctx, int(raw))
	if err != nil {
		return Anonymous
	}
	return Identity{UserID: user.ID, Name: user.FullName, Email: user.Email}
}
