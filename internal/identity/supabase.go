package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SupabaseVerifier validates tokens by asking the BaaS auth service who they belong to.
type SupabaseVerifier struct {
	baseURL string
	anonKey string
	client  *http.Client
}

func NewSupabaseVerifier(baseURL, anonKey string, client *http.Client) *SupabaseVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseVerifier{baseURL: baseURL, anonKey: anonKey, client: client}
}

type supabaseUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (s *SupabaseVerifier) Verify(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return User{}, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return User{}, ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		return User{}, fmt.Errorf("auth service status %d", resp.StatusCode)
	}
	var su supabaseUser
	if err := json.Unmarshal(body, &su); err != nil {
		return User{}, fmt.Errorf("decode auth user: %w", err)
	}
	if su.ID == "" {
		return User{}, ErrUnauthorized
	}
	u := User{ID: su.ID, Email: su.Email}
	if name, ok := su.UserMetadata["name"].(string); ok {
		u.Name = name
	}
	return u, nil
}
