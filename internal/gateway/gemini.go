package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient serves the same chat requests straight from the Gemini API.
// Gateway model ids like "google/gemini-2.5-flash" lose their vendor prefix.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string, httpClient *http.Client) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not configured")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: c}, nil
}

func (g *GeminiClient) Invoke(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	contents, system, err := toGenaiContents(req.Messages)
	if err != nil {
		return ChatResponse{}, err
	}
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	for _, m := range req.Modalities {
		cfg.ResponseModalities = append(cfg.ResponseModalities, strings.ToUpper(m))
	}
	model := GeminiModelName(req.Model)
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return ChatResponse{}, mapGenaiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ChatResponse{}, ErrEmptyChoices
	}
	out := ChatResponse{Model: model}
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			out.Images = append(out.Images, "data:"+p.InlineData.MIMEType+";base64,"+base64.StdEncoding.EncodeToString(p.InlineData.Data))
		}
	}
	out.Content = text.String()
	return out, nil
}

func GeminiModelName(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return model[i+1:]
	}
	return model
}

func toGenaiContents(msgs []Message) ([]*genai.Content, *genai.Content, error) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		parts, err := toGenaiParts(m)
		if err != nil {
			return nil, nil, err
		}
		switch m.Role {
		case RoleSystem:
			system = genai.NewContentFromParts(parts, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	return contents, system, nil
}

func toGenaiParts(m Message) ([]*genai.Part, error) {
	if len(m.Parts) == 0 {
		return []*genai.Part{genai.NewPartFromText(m.Text)}, nil
	}
	parts := make([]*genai.Part, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch {
		case p.ImageURL != nil:
			if mime, data, ok := DecodeDataURL(p.ImageURL.URL); ok {
				parts = append(parts, genai.NewPartFromBytes(data, mime))
				continue
			}
			parts = append(parts, genai.NewPartFromURI(p.ImageURL.URL, guessImageMIME(p.ImageURL.URL)))
		case p.InputAudio != nil:
			data, err := base64.StdEncoding.DecodeString(p.InputAudio.Data)
			if err != nil {
				return nil, fmt.Errorf("decode audio part: %w", err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, "audio/"+p.InputAudio.Format))
		default:
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
	}
	return parts, nil
}

// DecodeDataURL splits a base64 data URL into its MIME type and bytes.
func DecodeDataURL(u string) (string, []byte, bool) {
	if !strings.HasPrefix(u, "data:") {
		return "", nil, false
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return strings.TrimSuffix(meta, ";base64"), data, true
}

func guessImageMIME(u string) string {
	l := strings.ToLower(u)
	switch {
	case strings.HasSuffix(l, ".png"):
		return "image/png"
	case strings.HasSuffix(l, ".webp"):
		return "image/webp"
	case strings.HasSuffix(l, ".pdf"):
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

func mapGenaiError(err error) error {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return fmt.Errorf("gemini generate failed: %w", err)
	}
	switch apiErr.Code {
	case 429:
		return ErrRateLimited
	case 402:
		return ErrCreditsDepleted
	}
	return &StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
}
