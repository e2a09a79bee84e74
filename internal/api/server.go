package api

import (
	"context"
	"log/slog"
	"net/http"

	"ecopulse/internal/identity"
	"ecopulse/internal/metrics"
	"ecopulse/internal/service"
	"ecopulse/internal/workflows"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DailyTipsStarter starts the once-per-day copilot batch on the worker.
type DailyTipsStarter interface {
	StartDailyTips(ctx context.Context, in workflows.DailyTipsInput) (string, error)
}

type Deps struct {
	Service   *service.Service
	Verifier  identity.Verifier
	Metrics   *metrics.Collector
	DB        Pinger
	DailyTips DailyTipsStarter
	Logger    *slog.Logger
}

type Server struct {
	svc       *service.Service
	verifier  identity.Verifier
	metrics   *metrics.Collector
	db        Pinger
	dailyTips DailyTipsStarter
	logger    *slog.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		svc:       d.Service,
		verifier:  d.Verifier,
		metrics:   d.Metrics,
		db:        d.DB,
		dailyTips: d.DailyTips,
		logger:    d.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "api")
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(s.recoverJSON)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/functions/v1", func(r chi.Router) {
		r.Get("/global_impact", s.handleGlobalImpact)
		r.Post("/global_impact", s.handleRefreshGlobalImpact)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/analyze_bill", s.handleAnalyzeBill)
			r.Post("/design_advisor", s.handleDesignAdvisor)
			r.Post("/analyze_image", s.handleAnalyzeImage)
			r.Post("/generate_blueprint", s.handleGenerateBlueprint)
			r.Post("/voice_to_text", s.handleVoiceToText)
			r.Post("/eco_copilot", s.handleCopilotChat)
			r.Post("/eco_copilot_daily", s.handleDailyTips)
			r.Post("/eco_forecast", s.handleForecast)
			r.Post("/predict", s.handlePredict)
			r.Post("/pcwno_discover_edges", s.handleDiscoverEdges)
			r.Post("/pcwno_plan", s.handlePlan)
			r.Post("/pcwno_apply", s.handleApply)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/profile", s.handleGetProfile)
		r.Put("/profile", s.handleUpdateProfile)
		r.Get("/metrics", s.handleListMetrics)
		r.Post("/metrics", s.handleAddMetric)
		r.Get("/goals", s.handleGetGoal)
		r.Put("/goals", s.handleSetGoal)
		r.Get("/bills", s.handleListBills)
		r.Get("/forecasts/latest", s.handleLatestForecast)
		r.Get("/achievements", s.handleAchievements)
		r.Get("/eco-points", s.handleEcoPoints)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/challenges", s.handleChallenges)
		r.Post("/challenges/{id}/complete", s.handleCompleteChallenge)
		r.Get("/teams", s.handleListTeams)
		r.Post("/teams", s.handleCreateTeam)
		r.Post("/teams/{id}/join", s.handleJoinTeam)
		r.Delete("/teams/{id}/members/me", s.handleLeaveTeam)
		r.Get("/notifications", s.handleNotifications)
		r.Post("/feedback", s.handleFeedback)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, errNotFoundRoute)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
