package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"ecopulse/internal/extract"
	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/prompts"
	"ecopulse/internal/storage"
	"ecopulse/internal/util"

	"golang.org/x/sync/errgroup"
)

type PlanRequest struct {
	Context *prompts.PlanContext `json:"context"`
}

type PlanResult struct {
	Policy  models.Policy `json:"policy"`
	DTRun   models.DTRun  `json:"dt_run"`
	Success bool          `json:"success"`
}

type planFields struct {
	Rationale     string                `json:"rationale"`
	Interventions []models.Intervention `json:"interventions"`
}

// Plan asks for a prescriptive intervention plan and stores it with a simulated run.
func (s *Service) Plan(ctx context.Context, userID string, in PlanRequest) (PlanResult, error) {
	if in.Context == nil {
		return PlanResult{}, invalid("context is required")
	}
	ctx = gateway.WithOperation(ctx, "pcwno_plan", userID)
	resp, err := s.chat(ctx, s.prompts.Models.Text,
		gateway.System(s.prompts.System.Plan),
		gateway.User(prompts.PlanUser(*in.Context)))
	if err != nil {
		return PlanResult{}, err
	}
	res := extract.Extract(resp.Content, planFields{Rationale: resp.Content, Interventions: []models.Intervention{}})
	if res.Fallback {
		s.warnFallback("pcwno_plan", res.Err, resp.Content)
	}
	plan := res.Value
	plan.Rationale = util.SanitizeText(plan.Rationale)
	if plan.Interventions == nil {
		plan.Interventions = []models.Intervention{}
	}
	for i := range plan.Interventions {
		plan.Interventions[i].Type = util.SanitizeText(plan.Interventions[i].Type)
		plan.Interventions[i].Window = util.SanitizeText(plan.Interventions[i].Window)
	}

	var totalKg, totalWater float64
	for _, iv := range plan.Interventions {
		totalKg += iv.ExpectedKg
		if iv.ExpectedWaterKl != nil {
			totalWater += *iv.ExpectedWaterKl
		}
	}
	items, err := json.Marshal(plan.Interventions)
	if err != nil {
		return PlanResult{}, fmt.Errorf("encode simulation items: %w", err)
	}
	policy, run, err := s.st.Policies.CreatePlan(ctx,
		models.Policy{UserID: userID, Rationale: plan.Rationale, Interventions: plan.Interventions},
		models.DTRun{
			UserID:          userID,
			TotalKg:         totalKg,
			TotalWaterKl:    totalWater,
			ConfidenceLevel: 0.75 + s.rand()*0.2,
			SimulationItems: items,
		})
	if err != nil {
		return PlanResult{}, fmt.Errorf("save plan: %w", err)
	}
	return PlanResult{Policy: policy, DTRun: run, Success: true}, nil
}

type ApplyRequest struct {
	PolicyID string `json:"policy_id"`
}

type ApplyResult struct {
	Success      bool   `json:"success"`
	PointsEarned int    `json:"points_earned"`
	Message      string `json:"message"`
}

// ApplyPlan credits the caller for adopting one of their own plans.
func (s *Service) ApplyPlan(ctx context.Context, userID string, in ApplyRequest) (ApplyResult, error) {
	if strings.TrimSpace(in.PolicyID) == "" {
		return ApplyResult{}, invalid("policy_id is required")
	}
	p, err := s.st.Policies.GetWithRuns(ctx, userID, in.PolicyID)
	if errors.Is(err, storage.ErrNotFound) {
		return ApplyResult{}, notFound("Policy not found or access denied")
	}
	if err != nil {
		return ApplyResult{}, fmt.Errorf("load policy: %w", err)
	}
	var totalKg float64
	if len(p.DTRuns) > 0 {
		totalKg = p.DTRuns[0].TotalKg
	}
	points := int(math.Floor(totalKg*2 + 0.5))
	err = s.st.Rewards.ApplyPolicyReward(ctx, models.PolicyReward{
		UserID:           userID,
		Points:           points,
		AchievementTitle: "Applied Prescriptive Plan",
		AchievementDesc:  fmt.Sprintf("Applied PCW-NO plan with expected %s kg CO2 savings", fmtNum(totalKg)),
		LogSummary:       fmt.Sprintf("Applied policy %s: %s...", p.ID, util.Truncate(p.Rationale, 100)),
	})
	if err != nil {
		return ApplyResult{}, fmt.Errorf("apply reward: %w", err)
	}
	return ApplyResult{
		Success:      true,
		PointsEarned: points,
		Message:      fmt.Sprintf("Plan applied successfully! You earned %d eco points.", points),
	}, nil
}

type EdgesResult struct {
	Edges   []models.SCMEdge `json:"edges"`
	Success bool             `json:"success"`
	Message string           `json:"message"`
}

type edgeFields struct {
	Edges []struct {
		SourceNode string  `json:"source_node"`
		TargetNode string  `json:"target_node"`
		Weight     float64 `json:"weight"`
	} `json:"edges"`
}

var fallbackEdges = []models.SCMEdge{
	{SourceNode: "temperature", TargetNode: "cooling_load", Weight: 0.82},
	{SourceNode: "cooling_load", TargetNode: "energy_usage", Weight: 0.75},
	{SourceNode: "energy_usage", TargetNode: "co2_emission", Weight: 0.90},
	{SourceNode: "grid_price", TargetNode: "conservation_actions", Weight: 0.65},
	{SourceNode: "insulation", TargetNode: "heating_load", Weight: 0.78},
}

// DiscoverEdges rebuilds the caller's structural causal model from recent activity.
func (s *Service) DiscoverEdges(ctx context.Context, userID string) (EdgesResult, error) {
	var (
		metrics  []models.Metric
		bills    []models.Bill
		policies []models.Policy
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metrics, err = s.st.Metrics.ListRecent(gctx, userID, 10)
		return err
	})
	g.Go(func() error {
		var err error
		bills, err = s.st.Bills.ListRecent(gctx, userID, 5)
		return err
	})
	g.Go(func() error {
		var err error
		policies, err = s.st.Policies.ListRecent(gctx, userID, 5)
		return err
	})
	if err := g.Wait(); err != nil {
		return EdgesResult{}, fmt.Errorf("load causal context: %w", err)
	}

	avg := averages(metrics)
	recent := make([]string, 0, len(policies))
	for _, p := range policies {
		types := make([]string, 0, len(p.Interventions))
		for _, iv := range p.Interventions {
			types = append(types, iv.Type)
		}
		recent = append(recent, strings.Join(types, ", "))
	}

	ctx = gateway.WithOperation(ctx, "pcwno_discover_edges", userID)
	resp, err := s.chat(ctx, s.prompts.Models.Text,
		gateway.System(s.prompts.System.Edges),
		gateway.User(prompts.EdgesUser(prompts.EdgeContext{
			AvgEnergy:           avg.Energy,
			AvgWater:            avg.Water,
			AvgCO2:              avg.CO2,
			BillCount:           len(bills),
			RecentInterventions: recent,
		})))
	if err != nil {
		return EdgesResult{}, err
	}

	edges := append([]models.SCMEdge(nil), fallbackEdges...)
	res := extract.Extract(resp.Content, edgeFields{})
	switch {
	case res.Fallback:
		s.warnFallback("pcwno_discover_edges", res.Err, resp.Content)
	case res.Value.Edges == nil:
		s.warnFallback("pcwno_discover_edges", extract.ErrNoJSON, resp.Content)
	default:
		edges = make([]models.SCMEdge, 0, len(res.Value.Edges))
		for _, e := range res.Value.Edges {
			edges = append(edges, models.SCMEdge{
				SourceNode: util.SanitizeText(e.SourceNode),
				TargetNode: util.SanitizeText(e.TargetNode),
				Weight:     e.Weight,
			})
		}
	}

	saved, err := s.st.Edges.Replace(ctx, userID, edges)
	if err != nil {
		return EdgesResult{}, fmt.Errorf("save edges: %w", err)
	}
	s.logAction(ctx, userID, fmt.Sprintf("Auto-discovered %d causal edges in structural causal model", len(saved)), "pcwno_discover_edges")
	return EdgesResult{
		Edges:   saved,
		Success: true,
		Message: fmt.Sprintf("Successfully discovered %d causal edges", len(saved)),
	}, nil
}
