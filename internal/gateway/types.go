package gateway

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client sends one chat-completion request to the AI gateway.
type Client interface {
	Invoke(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

type ImageURL struct {
	URL string `json:"url"`
}

type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type ContentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ImageURL   *ImageURL   `json:"image_url,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
}

func TextPart(s string) ContentPart {
	return ContentPart{Type: "text", Text: s}
}

func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

func AudioPart(base64Data, format string) ContentPart {
	return ContentPart{Type: "input_audio", InputAudio: &InputAudio{Data: base64Data, Format: format}}
}

// Message content is either plain Text or a list of Parts. Parts wins when set.
type Message struct {
	Role  string
	Text  string
	Parts []ContentPart
}

func System(s string) Message { return Message{Role: RoleSystem, Text: s} }
func User(s string) Message   { return Message{Role: RoleUser, Text: s} }

func UserParts(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Parts: parts}
}

func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) > 0 {
		return json.Marshal(struct {
			Role    string        `json:"role"`
			Content []ContentPart `json:"content"`
		}{m.Role, m.Parts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{m.Role, m.Text})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Text, m.Parts = "", nil
	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return nil
	}
	if raw.Content[0] == '"' {
		return json.Unmarshal(raw.Content, &m.Text)
	}
	return json.Unmarshal(raw.Content, &m.Parts)
}

type ChatRequest struct {
	Model      string    `json:"model"`
	Messages   []Message `json:"messages"`
	Modalities []string  `json:"modalities,omitempty"`
}

// ChatResponse is the first choice of a completion: its text and any generated image URLs.
type ChatResponse struct {
	Content string
	Images  []string
	Model   string
}

func (r ChatResponse) FirstImage() string {
	if len(r.Images) == 0 {
		return ""
	}
	return r.Images[0]
}

// ImageModalities asks an image-capable model for an image plus text.
var ImageModalities = []string{"image", "text"}

// contentText flattens a response content value that may be a string or a part list.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" && p.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
