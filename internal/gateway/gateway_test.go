package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"ecopulse/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorType(""), ClassifyError(nil))
	assert.Equal(t, ErrorRate, ClassifyError(fmt.Errorf("wrap: %w", ErrRateLimited)))
	assert.Equal(t, ErrorQuota, ClassifyError(ErrCreditsDepleted))
	assert.Equal(t, ErrorTransient, ClassifyError(&StatusError{StatusCode: 502}))
	assert.Equal(t, ErrorPermanent, ClassifyError(&StatusError{StatusCode: 400}))
	assert.Equal(t, ErrorTransient, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, ErrorContext, ClassifyError(errors.New("prompt too long")))
}

func TestIsQuotaOrRate(t *testing.T) {
	assert.True(t, IsQuotaOrRate(ErrRateLimited))
	assert.True(t, IsQuotaOrRate(fmt.Errorf("x: %w", ErrCreditsDepleted)))
	assert.False(t, IsQuotaOrRate(&StatusError{StatusCode: 500}))
}

func TestMessageJSONRoundTripKeepsShape(t *testing.T) {
	b, err := json.Marshal(User("plain"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"plain"}`, string(b))

	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":[{"type":"text","text":"t"},{"type":"input_audio","input_audio":{"data":"QUJD","format":"webm"}}]}`), &m))
	require.Len(t, m.Parts, 2)
	assert.Equal(t, "webm", m.Parts[1].InputAudio.Format)
}

func TestGeminiModelName(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", GeminiModelName("google/gemini-2.5-flash"))
	assert.Equal(t, "gemini-2.5-flash", GeminiModelName("gemini-2.5-flash"))
}

func TestDecodeDataURL(t *testing.T) {
	mime, data, ok := DecodeDataURL("data:image/jpeg;base64,QUJD")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, []byte("ABC"), data)

	_, _, ok = DecodeDataURL("https://x/y.png")
	assert.False(t, ok)
	_, _, ok = DecodeDataURL("data:image/png,raw")
	assert.False(t, ok)
}

func TestToGenaiContentsSplitsSystem(t *testing.T) {
	contents, system, err := toGenaiContents([]Message{
		System("be brief"),
		UserParts(TextPart("what is this"), ImagePart("data:image/png;base64,QUJD"), ImagePart("https://x/y.webp")),
		{Role: RoleAssistant, Text: "earlier answer"},
	})
	require.NoError(t, err)
	require.NotNil(t, system)
	assert.Equal(t, "be brief", system.Parts[0].Text)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 3)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "image/webp", contents[0].Parts[2].FileData.MIMEType)
	assert.Equal(t, "model", contents[1].Role)
}

func TestToGenaiPartsRejectsBadAudio(t *testing.T) {
	_, err := toGenaiParts(UserParts(AudioPart("%%%", "webm")))
	require.Error(t, err)
}

func TestMapGenaiError(t *testing.T) {
	require.ErrorIs(t, mapGenaiError(genai.APIError{Code: 429}), ErrRateLimited)
	require.ErrorIs(t, mapGenaiError(genai.APIError{Code: 402}), ErrCreditsDepleted)
	var se *StatusError
	require.True(t, errors.As(mapGenaiError(genai.APIError{Code: 500, Message: "boom"}), &se))
	assert.Equal(t, "boom", se.Body)
}

type recordingObserver struct{ outcomes []string }

func (r *recordingObserver) ObserveGatewayCall(_, _, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

type recordingAuditor struct{ recs []CallRecord }

func (r *recordingAuditor) RecordCall(_ context.Context, rec CallRecord) error {
	r.recs = append(r.recs, rec)
	return nil
}

type failingClient struct{ err error }

func (f failingClient) Invoke(context.Context, ChatRequest) (ChatResponse, error) {
	return ChatResponse{}, f.err
}

func TestInstrumentedRecordsOutcome(t *testing.T) {
	obs := &recordingObserver{}
	aud := &recordingAuditor{}
	ctx := WithOperation(context.Background(), "predict", "user-1")

	ok := Instrument(NewMockClient(), "mock", obs, aud)
	_, err := ok.Invoke(ctx, ChatRequest{Model: "google/gemini-2.5-flash", Messages: []Message{User("x")}})
	require.NoError(t, err)

	bad := Instrument(failingClient{err: ErrRateLimited}, "http", obs, aud)
	_, err = bad.Invoke(ctx, ChatRequest{Model: "m"})
	require.ErrorIs(t, err, ErrRateLimited)

	assert.Equal(t, []string{"ok", "rate"}, obs.outcomes)
	require.Len(t, aud.recs, 2)
	assert.Equal(t, "predict", aud.recs[0].Operation)
	assert.Equal(t, "user-1", aud.recs[0].UserID)
	assert.Equal(t, "error", aud.recs[1].Status)
	assert.Equal(t, "rate", aud.recs[1].ErrorType)
}

func TestMockClientByOperation(t *testing.T) {
	m := NewMockClient()
	resp, err := m.Invoke(WithOperation(context.Background(), "analyze_bill", "u"), ChatRequest{Model: "google/gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "energy_cost")

	img, err := m.Invoke(context.Background(), ChatRequest{Model: "x", Modalities: ImageModalities})
	require.NoError(t, err)
	assert.NotEmpty(t, img.FirstImage())
}

func TestNewSelectsBackend(t *testing.T) {
	c, err := New(context.Background(), config.Config{GatewayBackend: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	c, err = New(context.Background(), config.Config{GatewayBackend: "http", GatewayBaseURL: "http://x"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPClient{}, c)

	_, err = New(context.Background(), config.Config{GatewayBackend: "gemini"})
	require.Error(t, err)

	_, err = New(context.Background(), config.Config{GatewayBackend: "carrier-pigeon"})
	require.Error(t, err)
}
