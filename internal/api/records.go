package api

import (
	"fmt"
	"net/http"
	"strconv"

	"ecopulse/internal/identity"
	"ecopulse/internal/models"
	"ecopulse/internal/service"

	"github.com/go-chi/chi/v5"
)

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", service.ErrValidation)
	}
	return id, nil
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetProfile(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileUpdate
	if err := decode(w, r, &in); err != nil {
		fail(w, err)
		return
	}
	p, err := s.svc.UpdateProfile(r.Context(), identity.UserID(r.Context()), in)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ms, err := s.svc.ListMetrics(r.Context(), identity.UserID(r.Context()), limit)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": ms})
}

func (s *Server) handleAddMetric(w http.ResponseWriter, r *http.Request) {
	var m models.Metric
	if err := decode(w, r, &m); err != nil {
		fail(w, err)
		return
	}
	out, err := s.svc.AddMetric(r.Context(), identity.UserID(r.Context()), m)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.GetGoal(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var g models.Goal
	if err := decode(w, r, &g); err != nil {
		fail(w, err)
		return
	}
	out, err := s.svc.SetGoal(r.Context(), identity.UserID(r.Context()), g)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.svc.ListBills(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (s *Server) handleLatestForecast(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.LatestForecast(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	as, err := s.svc.ListAchievements(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": as})
}

func (s *Server) handleEcoPoints(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.EcoPoints(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Leaderboard(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	cs, err := s.svc.ListChallenges(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": cs})
}

func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, err)
		return
	}
	c, err := s.svc.CompleteChallenge(r.Context(), identity.UserID(r.Context()), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "challenge": c, "points_earned": c.RewardPoints})
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.svc.ListTeams(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var t models.Team
	if err := decode(w, r, &t); err != nil {
		fail(w, err)
		return
	}
	out, err := s.svc.CreateTeam(r.Context(), identity.UserID(r.Context()), t)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleJoinTeam(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, err)
		return
	}
	m, err := s.svc.JoinTeam(r.Context(), identity.UserID(r.Context()), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleLeaveTeam(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.svc.LeaveTeam(r.Context(), identity.UserID(r.Context()), id); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	logs, err := s.svc.Notifications(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": logs})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var f models.Feedback
	if err := decode(w, r, &f); err != nil {
		fail(w, err)
		return
	}
	out, err := s.svc.AddFeedback(r.Context(), identity.UserID(r.Context()), f)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
