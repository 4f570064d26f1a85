package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "userID"

// ErrUnauthorized is returned when a bearer token cannot be resolved to
// an identity.
var ErrUnauthorized = errors.New("invalid or missing bearer token")

// Verifier resolves a bearer token to a user identity. Commit operations
// require it; validate (dry-run) operations run identity-optional.
type Verifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// StaticVerifier resolves tokens from a fixed map, for deployments
// without an external identity provider.
type StaticVerifier struct {
	tokens map[string]uuid.UUID
}

// NewStaticVerifier copies the token-to-user mapping.
func NewStaticVerifier(tokens map[string]uuid.UUID) *StaticVerifier {
	cloned := make(map[string]uuid.UUID, len(tokens))
	for token, id := range tokens {
		cloned[token] = id
	}
	return &StaticVerifier{tokens: cloned}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := v.tokens[token]
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	return id, nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// ContextWithUserID returns a new context carrying the authenticated user.
func ContextWithUserID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext retrieves the authenticated user from the context, if any.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
