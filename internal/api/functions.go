package api

import (
	"errors"
	"net/http"

	"ecopulse/internal/identity"
	"ecopulse/internal/prompts"
	"ecopulse/internal/service"
	"ecopulse/internal/workflows"
)

func (s *Server) handleAnalyzeBill(w http.ResponseWriter, r *http.Request) {
	var req service.BillRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	bill, err := s.svc.AnalyzeBill(r.Context(), identity.UserID(r.Context()), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "bill": bill})
}

func (s *Server) handleDesignAdvisor(w http.ResponseWriter, r *http.Request) {
	var req service.DesignRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	advice, err := s.svc.DesignAdvice(r.Context(), identity.UserID(r.Context()), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"advice": advice})
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageData  string `json:"imageData"`
		TextPrompt string `json:"textPrompt"`
		Mode       string `json:"mode"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	ctx := r.Context()
	userID := identity.UserID(ctx)
	if req.Mode == "generate" && req.TextPrompt != "" {
		img, err := s.svc.GenerateImage(ctx, userID, req.TextPrompt)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"generatedImage": img})
		return
	}
	out, err := s.svc.AnalyzeImage(ctx, userID, req.ImageData, req.TextPrompt)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGenerateBlueprint(w http.ResponseWriter, r *http.Request) {
	var req prompts.BlueprintSpec
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	bp, err := s.svc.GenerateBlueprint(r.Context(), identity.UserID(r.Context()), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blueprint": bp})
}

func (s *Server) handleVoiceToText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Audio string `json:"audio"`
	}
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	text, err := s.svc.Transcribe(r.Context(), identity.UserID(r.Context()), req.Audio)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": text})
}

func (s *Server) handleCopilotChat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	reply, err := s.svc.CopilotChat(r.Context(), identity.UserID(r.Context()), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
}

// handleDailyTips starts today's batch workflow. A repeat trigger on the same
// UTC day reports the existing workflow and starts nothing.
func (s *Server) handleDailyTips(w http.ResponseWriter, r *http.Request) {
	if s.dailyTips == nil {
		writeErr(w, http.StatusServiceUnavailable, errBatchUnavailable)
		return
	}
	id, err := s.dailyTips.StartDailyTips(r.Context(), workflows.DailyTipsInput{})
	switch {
	case errors.Is(err, workflows.ErrAlreadyStarted):
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "started": false, "workflow_id": id})
	case err != nil:
		fail(w, err)
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "started": true, "workflow_id": id})
	}
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.Forecast(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forecast": f})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req service.PredictRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	p, err := s.svc.Predict(r.Context(), identity.UserID(r.Context()), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDiscoverEdges(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.DiscoverEdges(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req service.PlanRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	out, err := s.svc.Plan(r.Context(), identity.UserID(r.Context()), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req service.ApplyRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	out, err := s.svc.ApplyPlan(r.Context(), identity.UserID(r.Context()), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGlobalImpact(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.GlobalImpact(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRefreshGlobalImpact(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.RefreshGlobalImpact(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": g})
}
