package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"ecopulse/internal/models"
	"ecopulse/internal/storage"
	"ecopulse/internal/util"
)

const (
	defaultMetricLimit = 30
	maxMetricLimit     = 500
	leaderboardSize    = 10
	notificationLimit  = 20
)

func mapNotFound(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFound(msg)
	}
	return err
}

// EnsureProfile registers the caller on first contact.
func (s *Service) EnsureProfile(ctx context.Context, id, name, email string) error {
	return s.st.Profiles.EnsureProfile(ctx, id, name, email)
}

func (s *Service) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	p, err := s.st.Profiles.Get(ctx, userID)
	return p, mapNotFound(err, "Profile not found")
}

type ProfileUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateProfile changes the caller's display name and email. Blank fields are left as they are.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (models.Profile, error) {
	name := strings.TrimSpace(util.SanitizeText(in.Name))
	email := strings.TrimSpace(in.Email)
	if name == "" && email == "" {
		return models.Profile{}, invalid("name or email is required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return models.Profile{}, invalid("email is not a valid address")
		}
	}
	p, err := s.st.Profiles.Update(ctx, userID, name, email)
	return p, mapNotFound(err, "Profile not found")
}

func (s *Service) ListMetrics(ctx context.Context, userID string, limit int) ([]models.Metric, error) {
	if limit <= 0 {
		limit = defaultMetricLimit
	}
	if limit > maxMetricLimit {
		limit = maxMetricLimit
	}
	return s.st.Metrics.ListRecent(ctx, userID, limit)
}

func (s *Service) AddMetric(ctx context.Context, userID string, m models.Metric) (models.Metric, error) {
	if m.EnergyUsage < 0 || m.WaterUsage < 0 {
		return models.Metric{}, invalid("energy_usage and water_usage must not be negative")
	}
	m.UserID = userID
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now().UTC()
	}
	return s.st.Metrics.Insert(ctx, m)
}

func (s *Service) GetGoal(ctx context.Context, userID string) (models.Goal, error) {
	g, err := s.st.Goals.Get(ctx, userID)
	return g, mapNotFound(err, "No goal set")
}

func (s *Service) SetGoal(ctx context.Context, userID string, g models.Goal) (models.Goal, error) {
	g.UserID = userID
	return s.st.Goals.Upsert(ctx, g)
}

func (s *Service) ListBills(ctx context.Context, userID string) ([]models.Bill, error) {
	return s.st.Bills.ListRecent(ctx, userID, 24)
}

func (s *Service) LatestForecast(ctx context.Context, userID string) (models.Forecast, error) {
	f, err := s.st.Forecasts.Latest(ctx, userID)
	return f, mapNotFound(err, "No forecast yet")
}

func (s *Service) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	return s.st.Rewards.ListAchievements(ctx, userID)
}

// EcoPoints returns the caller's points, or a zero row at the default badge.
func (s *Service) EcoPoints(ctx context.Context, userID string) (models.EcoPoints, error) {
	p, err := s.st.Rewards.GetPoints(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.EcoPoints{UserID: userID, BadgeLevel: storage.DefaultBadge}, nil
	}
	return p, err
}

func (s *Service) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return s.st.Rewards.Leaderboard(ctx, leaderboardSize)
}

func (s *Service) ListChallenges(ctx context.Context) ([]models.Challenge, error) {
	return s.st.Rewards.ListActiveChallenges(ctx)
}

func (s *Service) CompleteChallenge(ctx context.Context, userID string, id int64) (models.Challenge, error) {
	c, err := s.st.Rewards.CompleteChallenge(ctx, userID, id)
	return c, mapNotFound(err, "Challenge not found or inactive")
}

func (s *Service) ListTeams(ctx context.Context) ([]models.Team, error) {
	return s.st.Teams.List(ctx)
}

func (s *Service) CreateTeam(ctx context.Context, userID string, t models.Team) (models.Team, error) {
	t.TeamName = strings.TrimSpace(t.TeamName)
	if t.TeamName == "" {
		return models.Team{}, invalid("team_name is required")
	}
	t.CreatedBy = userID
	return s.st.Teams.Create(ctx, t)
}

func (s *Service) JoinTeam(ctx context.Context, userID string, teamID int64) (models.TeamMember, error) {
	m, err := s.st.Teams.Join(ctx, teamID, userID)
	return m, mapNotFound(err, "Team not found")
}

func (s *Service) LeaveTeam(ctx context.Context, userID string, teamID int64) error {
	return mapNotFound(s.st.Teams.Leave(ctx, teamID, userID), "Not a member of this team")
}

func (s *Service) Notifications(ctx context.Context, userID string) ([]models.AgentLog, error) {
	return s.st.AgentLogs.ListRecent(ctx, userID, notificationLimit)
}

func (s *Service) AddFeedback(ctx context.Context, userID string, f models.Feedback) (models.Feedback, error) {
	f.FeedbackType = strings.TrimSpace(f.FeedbackType)
	if f.FeedbackType == "" {
		return models.Feedback{}, invalid("feedback_type is required")
	}
	f.UserID = userID
	return s.st.Reports.InsertFeedback(ctx, f)
}

func (s *Service) GlobalImpact(ctx context.Context) (models.GlobalImpact, error) {
	g, err := s.st.Impact.Get(ctx)
	return g, mapNotFound(err, "Global impact not computed yet")
}
