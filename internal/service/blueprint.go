package service

import (
	"context"
	"fmt"
	"strconv"

	"ecopulse/internal/extract"
	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/prompts"
	"ecopulse/internal/util"
)

type blueprintAnalysis struct {
	EnergyInsights      string  `json:"energyInsights"`
	SustainabilityScore float64 `json:"sustainabilityScore"`
	VastuRating         float64 `json:"vastuRating"`
	Analysis            string  `json:"analysis"`
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// GenerateBlueprint draws a Vastu floor plan, scores it with the text model and stores both.
func (s *Service) GenerateBlueprint(ctx context.Context, userID string, spec prompts.BlueprintSpec) (models.Blueprint, error) {
	if spec.Facing == "" || spec.PlotSize <= 0 {
		return models.Blueprint{}, invalid("plotSize and facing are required")
	}
	if spec.GreenFeatures == nil {
		spec.GreenFeatures = []string{}
	}
	ctx = gateway.WithOperation(ctx, "generate_blueprint", userID)

	img, err := s.gw.Invoke(ctx, gateway.ChatRequest{
		Model:      s.prompts.Models.Image,
		Messages:   []gateway.Message{gateway.User(prompts.BlueprintImageUser(spec))},
		Modalities: gateway.ImageModalities,
	})
	if err != nil {
		return models.Blueprint{}, err
	}
	var imageURL *string
	if u := img.FirstImage(); u != "" {
		imageURL = &u
	}

	resp, err := s.chat(ctx, s.prompts.Models.Text, gateway.User(prompts.BlueprintAnalysisUser(spec)))
	if err != nil {
		return models.Blueprint{}, fmt.Errorf("blueprint analysis: %w", err)
	}
	text := resp.Content
	if text == "" {
		text = "{}"
	}
	res := extract.Extract(text, blueprintAnalysis{EnergyInsights: text, SustainabilityScore: 75, VastuRating: 7.5, Analysis: text})
	if res.Fallback {
		s.warnFallback("generate_blueprint", res.Err, text)
	}
	a := res.Value
	a.EnergyInsights = util.SanitizeText(a.EnergyInsights)
	a.Analysis = util.SanitizeText(a.Analysis)

	bp, err := s.st.Designs.InsertBlueprint(ctx, models.Blueprint{
		UserID:              userID,
		PlotSize:            spec.PlotSize,
		PlotUnit:            spec.PlotUnit,
		FacingDirection:     spec.Facing,
		NumFloors:           spec.NumFloors,
		NumRooms:            spec.NumRooms,
		GreenFeatures:       spec.GreenFeatures,
		BlueprintImageURL:   imageURL,
		EnergyInsights:      a.EnergyInsights,
		SustainabilityScore: a.SustainabilityScore,
		VastuRating:         a.VastuRating,
		AIAnalysis:          a.Analysis,
	})
	if err != nil {
		return models.Blueprint{}, fmt.Errorf("save blueprint: %w", err)
	}
	s.logAction(ctx, userID,
		fmt.Sprintf("Blueprint: %s%s, %s-facing, %d rooms", fmtNum(spec.PlotSize), spec.PlotUnit, spec.Facing, spec.NumRooms),
		fmt.Sprintf("Generated sustainable Vastu blueprint with score %s/100", fmtNum(a.SustainabilityScore)))
	return bp, nil
}
