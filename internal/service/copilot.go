package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/prompts"
	"ecopulse/internal/util"
)

const (
	defaultTips      = "Keep up the great work!"
	dailyTipPoints   = 5
	chatLogAction    = "voice_conversation"
	maxChatLogRunes  = 500
	dailyMetricsSpan = 24 * time.Hour
)

// DailyTipsResult summarizes one run of the daily copilot batch.
type DailyTipsResult struct {
	Success        bool   `json:"success"`
	ProcessedUsers int    `json:"processed_users"`
	TipsCreated    int    `json:"tips_created"`
	StoppedReason  string `json:"stopped_reason,omitempty"`
}

type usageAverages struct {
	Energy, Water, CO2 float64
}

func averages(ms []models.Metric) usageAverages {
	var a usageAverages
	if len(ms) == 0 {
		return a
	}
	for _, m := range ms {
		a.Energy += m.EnergyUsage
		a.Water += m.WaterUsage
		a.CO2 += m.CO2Emission
	}
	n := float64(len(ms))
	return usageAverages{Energy: a.Energy / n, Water: a.Water / n, CO2: a.CO2 / n}
}

// EcoScore is 100 minus a weighted usage penalty, rounded half up and clamped to 0..100.
func EcoScore(avgEnergy, avgWater, avgCO2 float64) int {
	v := math.Floor(100 - (avgEnergy*0.3 + avgWater*0.3 + avgCO2*0.4) + 0.5)
	return int(math.Min(100, math.Max(0, v)))
}

// Outcomes of one user in the daily copilot batch.
const (
	TipsProcessed = "processed"
	TipsSkipped   = "skipped"
	TipsFailed    = "failed"
	TipsStopped   = "stopped"
)

// RunDailyTips generates tips for every profile with metrics in the last 24h.
// A rate-limit or quota error ends the run; any other per-user failure skips that user.
func (s *Service) RunDailyTips(ctx context.Context) (DailyTipsResult, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return DailyTipsResult{}, err
	}
	out := DailyTipsResult{Success: true}
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		outcome, err := s.DailyTipsForUser(ctx, p)
		switch outcome {
		case TipsProcessed:
			out.ProcessedUsers++
			out.TipsCreated++
		case TipsStopped:
			out.StoppedReason = string(gateway.ClassifyError(err))
			return out, nil
		}
	}
	s.logger.Info("daily tips done", "processed_users", out.ProcessedUsers, "profiles", len(profiles))
	return out, nil
}

func (s *Service) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.st.Profiles.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// DailyTipsForUser runs the daily batch for one profile and reports the outcome.
// The error is non-nil only for TipsFailed and TipsStopped.
func (s *Service) DailyTipsForUser(ctx context.Context, p models.Profile) (string, error) {
	err := s.dailyTipsFor(ctx, p, s.now().Add(-dailyMetricsSpan))
	switch {
	case err == nil:
		s.observe(TipsProcessed)
		return TipsProcessed, nil
	case errors.Is(err, errNoRecentMetrics):
		s.observe(TipsSkipped)
		return TipsSkipped, nil
	case gateway.IsQuotaOrRate(err):
		s.observe(TipsStopped)
		s.logger.Warn("daily tips stopped", "user_id", p.ID, "reason", gateway.ClassifyError(err))
		return TipsStopped, err
	default:
		s.observe(TipsFailed)
		s.logger.Error("daily tips for user", "user_id", p.ID, "error", err)
		return TipsFailed, err
	}
}

var errNoRecentMetrics = errors.New("no recent metrics")

func (s *Service) dailyTipsFor(ctx context.Context, p models.Profile, since time.Time) error {
	ms, err := s.st.Metrics.ListSince(ctx, p.ID, since)
	if err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}
	if len(ms) == 0 {
		return errNoRecentMetrics
	}
	avg := averages(ms)
	ctx = gateway.WithOperation(ctx, "eco_copilot", p.ID)
	resp, err := s.chat(ctx, s.prompts.Models.Text,
		gateway.System(s.prompts.System.CopilotDaily),
		gateway.User(prompts.CopilotDailyUser(p.Name, avg.Energy, avg.Water, avg.CO2)))
	if err != nil {
		return err
	}
	tips := resp.Content
	if tips == "" {
		tips = defaultTips
	}
	return s.st.Rewards.ApplyDailyReward(ctx, models.DailyReward{
		UserID:   p.ID,
		Summary:  "Daily EcoPulse Copilot insights for " + p.Name,
		Tips:     tips,
		Points:   dailyTipPoints,
		EcoScore: EcoScore(avg.Energy, avg.Water, avg.CO2),
	})
}

func (s *Service) observe(result string) {
	if s.obs != nil {
		s.obs.ObserveBatchUser(result)
	}
}

type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

// CopilotChat answers one conversational turn.
func (s *Service) CopilotChat(ctx context.Context, userID string, in ChatRequest) (string, error) {
	if strings.TrimSpace(in.Message) == "" {
		return "", invalid("message is required")
	}
	ctx = gateway.WithOperation(ctx, "eco_copilot", userID)
	resp, err := s.chat(ctx, s.prompts.Models.Text,
		gateway.System(s.prompts.System.CopilotChat),
		gateway.User(prompts.CopilotChatUser(in.Message, in.Context)))
	if err != nil {
		return "", err
	}
	reply := resp.Content
	if reply == "" {
		reply = defaultTips
	}
	s.logAction(ctx, userID, util.Truncate("User: "+in.Message+"\nAI: "+reply, maxChatLogRunes), chatLogAction)
	return reply, nil
}

// Transcribe turns base64 webm audio into text.
func (s *Service) Transcribe(ctx context.Context, userID, audio string) (string, error) {
	if audio == "" {
		return "", invalid("No audio data provided")
	}
	if i := strings.Index(audio, ";base64,"); strings.HasPrefix(audio, "data:") && i >= 0 {
		audio = audio[i+len(";base64,"):]
	}
	ctx = gateway.WithOperation(ctx, "voice_to_text", userID)
	resp, err := s.chat(ctx, s.prompts.Models.Text,
		gateway.System(s.prompts.System.Transcribe),
		gateway.UserParts(gateway.AudioPart(audio, "webm")))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
