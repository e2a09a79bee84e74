package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// a 1x1 transparent PNG
const mockImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// MockClient answers deterministically without network access. Replies are
// chosen by the operation attached to the context.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Invoke(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, err
	}
	out := ChatResponse{Model: "mock-" + GeminiModelName(req.Model)}
	if len(req.Modalities) > 0 {
		out.Images = []string{mockImage}
		out.Content = "Here is the generated image."
		return out, nil
	}
	switch OperationFrom(ctx) {
	case "analyze_bill":
		out.Content = "```json\n{\"energy_cost\": 1450.5, \"water_cost\": 320, \"energy_usage\": 212, \"water_usage\": 9800, \"ai_summary\": \"Usage is close to last month. Shift laundry to off-peak hours.\"}\n```"
	case "predict":
		out.Content = `{"ai_insight": "Energy use is moderate. Water use is above average for a small household.", "predicted_saving": 12, "risk_level": "medium", "tips": ["Run the washer on full loads", "Fix dripping taps", "Raise the AC set point to 26C"]}`
	case "pcwno_plan":
		out.Content = "```json\n{\"rationale\": \"High surface temperature drives cooling load.\", \"interventions\": [{\"type\": \"smart_thermostat\", \"window\": \"next_7_days\", \"expected_kg\": 12.5}, {\"type\": \"water_harvesting\", \"window\": \"next_30_days\", \"expected_kg\": 3, \"expected_water_kl\": 1.2}]}\n```"
	case "pcwno_discover_edges":
		out.Content = `{"edges": [{"source_node": "temperature", "target_node": "cooling_load", "weight": 0.8}, {"source_node": "cooling_load", "target_node": "energy_usage", "weight": 0.7}]}`
	case "generate_blueprint":
		out.Content = `{"energyInsights": "East light reaches the living room each morning.", "sustainabilityScore": 82, "vastuRating": 8, "analysis": "Layout follows the main Vastu zones."}`
	case "voice_to_text":
		out.Content = "mock transcript " + digest(req)
	default:
		out.Content = "Mock response. " + digest(req)
	}
	return out, nil
}

func digest(req ChatRequest) string {
	var b strings.Builder
	for _, msg := range req.Messages {
		b.WriteString(msg.Role)
		b.WriteString(msg.Text)
		for _, p := range msg.Parts {
			b.WriteString(p.Text)
		}
	}
	h := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("[%s]", hex.EncodeToString(h[:4]))
}
