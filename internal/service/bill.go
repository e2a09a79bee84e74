package service

import (
	"context"
	"fmt"
	"strings"

	"ecopulse/internal/extract"
	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/prompts"
	"ecopulse/internal/util"
)

const (
	billParseFailed    = "Unable to parse bill details. Please check the image quality and try again."
	billDefaultSummary = "Bill analyzed successfully"
	maxBillTextRunes   = 20000
)

type BillRequest struct {
	FileURL string `json:"file_url"`
	Month   string `json:"month"`
}

type billFields struct {
	EnergyCost  float64 `json:"energy_cost"`
	WaterCost   float64 `json:"water_cost"`
	EnergyUsage float64 `json:"energy_usage"`
	WaterUsage  float64 `json:"water_usage"`
	AISummary   string  `json:"ai_summary"`
}

// AnalyzeBill reads a bill image (or PDF) with the vision model and upserts the month's bill row.
func (s *Service) AnalyzeBill(ctx context.Context, userID string, in BillRequest) (models.Bill, error) {
	in.FileURL = strings.TrimSpace(in.FileURL)
	in.Month = strings.TrimSpace(in.Month)
	if in.FileURL == "" || in.Month == "" {
		return models.Bill{}, invalid("file_url and month are required")
	}
	ctx = gateway.WithOperation(ctx, "analyze_bill", userID)

	user := gateway.UserParts(gateway.TextPart(prompts.BillUser(in.Month)), gateway.ImagePart(in.FileURL))
	if util.IsPDF("", in.FileURL, nil) {
		text, err := s.pdfText(ctx, in.FileURL)
		if err != nil {
			s.logger.Warn("pdf bill text unavailable, sending url", "user_id", userID, "error", err)
		} else {
			user = gateway.User(prompts.BillUserFromText(in.Month, util.Truncate(text, maxBillTextRunes)))
		}
	}

	resp, err := s.chat(ctx, s.prompts.Models.Text, gateway.System(s.prompts.System.Bill), user)
	if err != nil {
		return models.Bill{}, err
	}
	content := resp.Content
	if content == "" {
		content = "{}"
	}
	res := extract.Extract(content, billFields{AISummary: billParseFailed})
	if res.Fallback {
		s.warnFallback("analyze_bill", res.Err, content)
	}
	f := res.Value
	summary := util.SanitizeText(f.AISummary)
	if summary == "" {
		summary = billDefaultSummary
	}
	url := in.FileURL
	bill, err := s.st.Bills.Upsert(ctx, models.Bill{
		UserID:       userID,
		Month:        in.Month,
		TotalAmount:  f.EnergyCost + f.WaterCost,
		EnergyUsage:  f.EnergyUsage,
		WaterUsage:   f.WaterUsage,
		AISummary:    &summary,
		UploadedFile: &url,
	})
	if err != nil {
		return models.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	return bill, nil
}

func (s *Service) pdfText(ctx context.Context, url string) (string, error) {
	body, contentType, err := util.FetchDocument(ctx, s.http, url)
	if err != nil {
		return "", err
	}
	if !util.IsPDF(contentType, url, body) {
		return "", fmt.Errorf("document is %q, not a pdf", contentType)
	}
	return util.ExtractPDFText(body)
}
