package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the BaaS access-token claims we read.
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 access tokens locally with the project's JWT secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (j *JWTVerifier) Verify(_ context.Context, token string) (User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return User{}, ErrUnauthorized
	}
	u := User{ID: claims.Subject, Email: claims.Email}
	if name, ok := claims.UserMetadata["name"].(string); ok {
		u.Name = name
	}
	return u, nil
}

// Sign issues an HS256 token for u. Used by the CLI and tests.
func (j *JWTVerifier) Sign(u User, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = u.ID
	c := Claims{Email: u.Email, RegisteredClaims: claims}
	if u.Name != "" {
		c.UserMetadata = map[string]any{"name": u.Name}
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// New picks local JWT verification when a secret is configured, otherwise introspection.
func New(baseURL, anonKey, jwtSecret string) Verifier {
	if jwtSecret != "" {
		return NewJWTVerifier(jwtSecret)
	}
	return NewSupabaseVerifier(baseURL, anonKey, nil)
}
