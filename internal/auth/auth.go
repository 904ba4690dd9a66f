// Package auth resolves the user id behind a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// Fernet validates fernet tokens whose payload is the user id.
type Fernet struct {
	keys []*fernet.Key
	ttl  time.Duration
}

// DefaultTokenTTL applies when NewFernet is given a non-positive ttl.
const DefaultTokenTTL = 24 * time.Hour

// NewFernet builds a Fernet authenticator from one or more base64 encoded keys.
// The first key signs issued tokens; all keys are accepted for validation.
func NewFernet(ttl time.Duration, keys ...string) (*Fernet, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one fernet key is required")
	}
	decoded, err := fernet.DecodeKeys(keys...)
	if err != nil {
		return nil, fmt.Errorf("decode fernet key: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Fernet{keys: decoded, ttl: ttl}, nil
}

// GenerateKey returns a new random fernet key in its encoded form.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}

// Issue returns a token for userID signed with the primary key.
func (f *Fernet) Issue(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: empty user id", apperrors.ErrInvalidInput)
	}
	tok, err := fernet.EncryptAndSign([]byte(userID), f.keys[0])
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(tok), nil
}

// Authenticate verifies the token signature and age.
func (f *Fernet) Authenticate(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), f.ttl, f.keys)
	if msg == nil {
		return "", fmt.Errorf("%w: invalid or expired token", apperrors.ErrUnauthorized)
	}
	userID := string(msg)
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: token carries no user id", apperrors.ErrUnauthorized)
	}
	return userID, nil
}

// Static maps every non-empty token to a single user. Development only.
type Static struct {
	UserID string
}

func (s Static) Authenticate(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: empty token", apperrors.ErrUnauthorized)
	}
	return s.UserID, nil
}

type contextKey struct{}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user id stored by the middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: missing bearer token", apperrors.ErrUnauthorized)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", apperrors.ErrUnauthorized)
	}
	return token, nil
}
