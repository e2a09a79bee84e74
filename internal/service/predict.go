package service

import (
	"context"
	"fmt"

	"ecopulse/internal/extract"
	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/prompts"
	"ecopulse/internal/util"
)

type PredictRequest struct {
	EnergyUsage float64 `json:"energy_usage"`
	WaterUsage  float64 `json:"water_usage"`
}

type Prediction struct {
	AIInsight       string   `json:"ai_insight"`
	PredictedSaving float64  `json:"predicted_saving"`
	RiskLevel       string   `json:"risk_level"`
	Tips            []string `json:"tips"`
}

var defaultPredictTips = []string{
	"Review your energy consumption patterns",
	"Consider water-saving fixtures",
	"Monitor usage during peak hours",
}

// Predict asks for usage insights and records them as a report for the caller.
func (s *Service) Predict(ctx context.Context, userID string, in PredictRequest) (Prediction, error) {
	ctx = gateway.WithOperation(ctx, "predict", userID)
	resp, err := s.chat(ctx, s.prompts.Models.Text,
		gateway.System(s.prompts.System.Predict),
		gateway.User(prompts.PredictUser(in.EnergyUsage, in.WaterUsage)))
	if err != nil {
		return Prediction{}, err
	}
	fallback := Prediction{
		AIInsight:       util.Truncate(resp.Content, 500),
		PredictedSaving: 15,
		RiskLevel:       "medium",
		Tips:            append([]string(nil), defaultPredictTips...),
	}
	res := extract.Extract(resp.Content, fallback)
	if res.Fallback {
		s.warnFallback("predict", res.Err, resp.Content)
	}
	p := res.Value
	p.AIInsight = util.SanitizeText(p.AIInsight)
	tips := make([]string, 0, len(p.Tips))
	for _, t := range p.Tips {
		tips = append(tips, util.SanitizeText(t))
	}
	p.Tips = tips
	if _, err := s.st.Reports.Insert(ctx, models.Report{UserID: userID, AIInsight: p.AIInsight, PredictedSaving: p.PredictedSaving}); err != nil {
		return Prediction{}, fmt.Errorf("save report: %w", err)
	}
	return p, nil
}
