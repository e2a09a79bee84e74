package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingToken = errors.New("authorization token required")
	ErrUnauthorized = errors.New("unauthorized")
)

// User is the caller resolved from a bearer token.
type User struct {
	ID    string
	Email string
	Name  string
}

// Verifier resolves a raw bearer token to a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

type contextKey string

const userKey contextKey = "identity_user"

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok && u.ID != ""
}

// UserID returns the authenticated user id or "".
func UserID(ctx context.Context) string {
	u, _ := UserFrom(ctx)
	return u.ID
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrUnauthorized
	}
	return strings.TrimSpace(token), nil
}

// RequireAuth rejects requests without a valid bearer token through deny and
// stores the resolved user on the request context otherwise.
func RequireAuth(v Verifier, deny func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				deny(w, err)
				return
			}
			u, err := v.Verify(r.Context(), token)
			if err != nil {
				deny(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
