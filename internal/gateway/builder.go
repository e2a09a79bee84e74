package gateway

import (
	"context"
	"fmt"
	"net/http"

	"ecopulse/internal/config"
)

// New builds the backend named by cfg.GatewayBackend: http, gemini or mock.
func New(ctx context.Context, cfg config.Config) (Client, error) {
	switch cfg.GatewayBackend {
	case "", "http":
		return NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, &http.Client{Timeout: cfg.GatewayTimeout})
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown gateway backend %q", cfg.GatewayBackend)
	}
}
