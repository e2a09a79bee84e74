package service

import (
	"context"
	"strings"

	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/util"
)

const (
	adviceUnavailable   = "Unable to generate advice at this time."
	analysisUnavailable = "No analysis available"
)

type DesignRequest struct {
	Prompt string `json:"prompt"`
	Image  string `json:"image"`
}

// jpegDataURL wraps raw base64 as a JPEG data URL; existing data URLs pass through.
func jpegDataURL(b64 string) string {
	if strings.HasPrefix(b64, "data:") {
		return b64
	}
	return "data:image/jpeg;base64," + b64
}

// DesignAdvice returns sustainability advice for a text prompt, an image, or both.
func (s *Service) DesignAdvice(ctx context.Context, userID string, in DesignRequest) (string, error) {
	if in.Prompt == "" && in.Image == "" {
		return "", invalid("Prompt or image is required")
	}
	ctx = gateway.WithOperation(ctx, "design_advisor", userID)

	user := gateway.User(in.Prompt)
	if in.Image != "" {
		text := in.Prompt
		if text == "" {
			text = s.prompts.User.DesignImageDefault
		}
		user = gateway.UserParts(gateway.TextPart(text), gateway.ImagePart(jpegDataURL(in.Image)))
	}
	resp, err := s.chat(ctx, s.prompts.Models.Text, gateway.System(s.prompts.System.DesignAdvisor), user)
	if err != nil {
		return "", err
	}
	advice := resp.Content
	if advice == "" {
		advice = adviceUnavailable
	}

	subject := "Image analysis"
	if in.Prompt != "" {
		subject = util.Truncate(in.Prompt, 50)
	}
	s.logAction(ctx, userID, "Design Advisor: "+subject+"...", advice)
	return advice, nil
}

type ImageAnalysis struct {
	Analysis      string  `json:"analysis"`
	ModifiedImage *string `json:"modifiedImage"`
}

// GenerateImage renders an image from a text prompt with the image model.
func (s *Service) GenerateImage(ctx context.Context, userID, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", invalid("textPrompt is required")
	}
	ctx = gateway.WithOperation(ctx, "analyze_image", userID)
	resp, err := s.gw.Invoke(ctx, gateway.ChatRequest{
		Model:      s.prompts.Models.Image,
		Messages:   []gateway.Message{gateway.User(prompt)},
		Modalities: gateway.ImageModalities,
	})
	if err != nil {
		return "", err
	}
	img := resp.FirstImage()
	if img == "" {
		return "", &Error{Kind: ErrUpstream, Msg: "No image was generated"}
	}
	s.saveImageAnalysis(ctx, models.ImageAnalysis{UserID: userID, Mode: "generate", Prompt: prompt, ImageURL: &img})
	return img, nil
}

// AnalyzeImage describes an image, then asks the image model for an enhanced copy.
// A failed enhancement still returns the analysis with a nil image.
func (s *Service) AnalyzeImage(ctx context.Context, userID, imageData, prompt string) (ImageAnalysis, error) {
	if imageData == "" {
		return ImageAnalysis{}, invalid("No image data provided")
	}
	ctx = gateway.WithOperation(ctx, "analyze_image", userID)

	text := s.prompts.User.ImageAnalysis
	if strings.TrimSpace(prompt) != "" {
		text += "\n\n" + prompt
	}
	resp, err := s.chat(ctx, s.prompts.Models.Text, gateway.UserParts(gateway.TextPart(text), gateway.ImagePart(imageData)))
	if err != nil {
		return ImageAnalysis{}, err
	}
	out := ImageAnalysis{Analysis: resp.Content}
	if out.Analysis == "" {
		out.Analysis = analysisUnavailable
	}

	enhanced, err := s.gw.Invoke(ctx, gateway.ChatRequest{
		Model:      s.prompts.Models.Image,
		Messages:   []gateway.Message{gateway.UserParts(gateway.TextPart(s.prompts.User.ImageEnhance), gateway.ImagePart(imageData))},
		Modalities: gateway.ImageModalities,
	})
	if err != nil {
		s.logger.Warn("image enhancement failed", "user_id", userID, "error", err)
	} else if img := enhanced.FirstImage(); img != "" {
		out.ModifiedImage = &img
	}
	s.saveImageAnalysis(ctx, models.ImageAnalysis{UserID: userID, Mode: "analyze", Prompt: prompt, Analysis: out.Analysis, ImageURL: out.ModifiedImage})
	return out, nil
}

func (s *Service) saveImageAnalysis(ctx context.Context, a models.ImageAnalysis) {
	a.Prompt = util.SanitizeText(a.Prompt)
	if _, err := s.st.Designs.InsertImageAnalysis(ctx, a); err != nil {
		s.logger.Warn("insert image analysis", "user_id", a.UserID, "error", err)
	}
}
