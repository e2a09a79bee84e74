// Package service implements the AI-gateway proxy handlers and the row
// endpoints behind them. Each exported method is one operation; the HTTP
// layer only decodes input and maps errors.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
	"ecopulse/internal/prompts"
	"ecopulse/internal/storage"
	"ecopulse/internal/util"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrUpstream marks a gateway reply that succeeded but lacked the expected payload.
	ErrUpstream = errors.New("upstream returned no usable result")
)

// Error carries the message shown to the caller and the class used for the status code.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string        { return e.Msg }
func (e *Error) Is(target error) bool { return target == e.Kind }

func invalid(msg string) error  { return &Error{Kind: ErrValidation, Msg: msg} }
func notFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

type ProfileStore interface {
	EnsureProfile(ctx context.Context, id, name, email string) error
	Get(ctx context.Context, id string) (models.Profile, error)
	Update(ctx context.Context, id, name, email string) (models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
}

type MetricStore interface {
	Insert(ctx context.Context, m models.Metric) (models.Metric, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Metric, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.Metric, error)
}

type BillStore interface {
	Upsert(ctx context.Context, b models.Bill) (models.Bill, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Bill, error)
}

type ForecastStore interface {
	Insert(ctx context.Context, f models.Forecast) (models.Forecast, error)
	Latest(ctx context.Context, userID string) (models.Forecast, error)
}

type ReportStore interface {
	Insert(ctx context.Context, r models.Report) (models.Report, error)
	InsertFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error)
}

type GoalStore interface {
	Get(ctx context.Context, userID string) (models.Goal, error)
	Upsert(ctx context.Context, g models.Goal) (models.Goal, error)
}

type AgentLogStore interface {
	Insert(ctx context.Context, l models.AgentLog) error
	ListRecent(ctx context.Context, userID string, limit int) ([]models.AgentLog, error)
}

type RewardStore interface {
	GetPoints(ctx context.Context, userID string) (models.EcoPoints, error)
	ApplyPolicyReward(ctx context.Context, rw models.PolicyReward) error
	ApplyDailyReward(ctx context.Context, rw models.DailyReward) error
	ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	ListActiveChallenges(ctx context.Context) ([]models.Challenge, error)
	CompleteChallenge(ctx context.Context, userID string, challengeID int64) (models.Challenge, error)
}

type TeamStore interface {
	List(ctx context.Context) ([]models.Team, error)
	Create(ctx context.Context, t models.Team) (models.Team, error)
	Join(ctx context.Context, teamID int64, userID string) (models.TeamMember, error)
	Leave(ctx context.Context, teamID int64, userID string) error
}

type PolicyStore interface {
	CreatePlan(ctx context.Context, p models.Policy, run models.DTRun) (models.Policy, models.DTRun, error)
	GetWithRuns(ctx context.Context, userID, policyID string) (models.Policy, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Policy, error)
}

type EdgeStore interface {
	Replace(ctx context.Context, userID string, edges []models.SCMEdge) ([]models.SCMEdge, error)
	List(ctx context.Context, userID string) ([]models.SCMEdge, error)
}

type DesignStore interface {
	InsertBlueprint(ctx context.Context, b models.Blueprint) (models.Blueprint, error)
	InsertImageAnalysis(ctx context.Context, a models.ImageAnalysis) (models.ImageAnalysis, error)
}

type ImpactStore interface {
	Totals(ctx context.Context) (int, float64, error)
	Upsert(ctx context.Context, g models.GlobalImpact) (models.GlobalImpact, error)
	Get(ctx context.Context) (models.GlobalImpact, error)
}

// Stores groups every repository the service writes to.
type Stores struct {
	Profiles  ProfileStore
	Metrics   MetricStore
	Bills     BillStore
	Forecasts ForecastStore
	Reports   ReportStore
	Goals     GoalStore
	AgentLogs AgentLogStore
	Rewards   RewardStore
	Teams     TeamStore
	Policies  PolicyStore
	Edges     EdgeStore
	Designs   DesignStore
	Impact    ImpactStore
}

// BatchObserver receives one outcome per user of the daily copilot batch.
type BatchObserver interface {
	ObserveBatchUser(result string)
}

type Options struct {
	Gateway  gateway.Client
	Prompts  *prompts.Catalog
	Stores   Stores
	HTTP     *http.Client
	Observer BatchObserver
	Now      func() time.Time
	Rand     func() float64
	Logger   *slog.Logger
}

type Service struct {
	gw      gateway.Client
	prompts *prompts.Catalog
	st      Stores
	http    *http.Client
	obs     BatchObserver
	now     func() time.Time
	rand    func() float64
	logger  *slog.Logger
}

func New(o Options) *Service {
	s := &Service{
		gw:      o.Gateway,
		prompts: o.Prompts,
		st:      o.Stores,
		http:    o.HTTP,
		obs:     o.Observer,
		now:     o.Now,
		rand:    o.Rand,
		logger:  o.Logger,
	}
	if s.prompts == nil {
		s.prompts = prompts.MustLoad()
	}
	if s.http == nil {
		s.http = &http.Client{Timeout: 60 * time.Second}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rand == nil {
		s.rand = rand.Float64
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "service")
	}
	return s
}

// chat sends a text request. The reply content is sanitized so it can be stored as-is.
func (s *Service) chat(ctx context.Context, model string, msgs ...gateway.Message) (gateway.ChatResponse, error) {
	resp, err := s.gw.Invoke(ctx, gateway.ChatRequest{Model: model, Messages: msgs})
	if err != nil {
		return resp, err
	}
	resp.Content = util.SanitizeText(resp.Content)
	return resp, nil
}

// logAction writes an agent log entry. Failures are logged, never returned.
func (s *Service) logAction(ctx context.Context, userID, summary, action string) {
	l := models.AgentLog{UserID: userID, Summary: util.SanitizeText(summary), AIAction: util.SanitizeText(action)}
	if err := s.st.AgentLogs.Insert(ctx, l); err != nil {
		s.logger.Warn("insert agent log", "user_id", userID, "error", err)
	}
}

func (s *Service) warnFallback(op string, err error, raw string) {
	s.logger.Warn("model output not parseable, using default", "operation", op, "error", err, "raw", util.DisplaySnippet(raw, 160))
}

// StoresFromDB wires every store to its Postgres repository.
func StoresFromDB(db *storage.DB) Stores {
	return Stores{
		Profiles:  storage.NewProfileRepo(db),
		Metrics:   storage.NewMetricRepo(db),
		Bills:     storage.NewBillRepo(db),
		Forecasts: storage.NewForecastRepo(db),
		Reports:   storage.NewReportRepo(db),
		Goals:     storage.NewGoalRepo(db),
		AgentLogs: storage.NewAgentLogRepo(db),
		Rewards:   storage.NewRewardsRepo(db),
		Teams:     storage.NewTeamRepo(db),
		Policies:  storage.NewPolicyRepo(db),
		Edges:     storage.NewEdgeRepo(db),
		Designs:   storage.NewDesignRepo(db),
		Impact:    storage.NewImpactRepo(db),
	}
}
