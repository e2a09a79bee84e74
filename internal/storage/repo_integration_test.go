package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"ecopulse/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("ECOPULSE_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("ECOPULSE_TEST_POSTGRES_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	_, err = db.Migrate(ctx)
	require.NoError(t, err)
	return db
}

func TestBillUpsertReplacesSameMonth(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewBillRepo(db)
	user := uuid.NewString()

	first, err := repo.Upsert(ctx, models.Bill{UserID: user, Month: "2025-01", TotalAmount: 10})
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, models.Bill{UserID: user, Month: "2025-01", TotalAmount: 42})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 42.0, second.TotalAmount)

	bills, err := repo.ListRecent(ctx, user, 5)
	require.NoError(t, err)
	require.Len(t, bills, 1)
}

func TestPolicyPlanAndApplyReward(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	policies := NewPolicyRepo(db)
	rewards := NewRewardsRepo(db)
	user := uuid.NewString()

	p, run, err := policies.CreatePlan(ctx,
		models.Policy{UserID: user, Rationale: "shift load", Interventions: []models.Intervention{{Type: "precool", Window: "14:00-16:00", ExpectedKg: 3}}},
		models.DTRun{TotalKg: 3, ConfidenceLevel: 0.8})
	require.NoError(t, err)
	require.Equal(t, p.ID, run.PolicyID)
	require.JSONEq(t, `[{"type":"precool","window":"14:00-16:00","expected_kg":3}]`, string(run.SimulationItems))

	got, err := policies.GetWithRuns(ctx, user, p.ID)
	require.NoError(t, err)
	require.Len(t, got.DTRuns, 1)

	_, err = policies.GetWithRuns(ctx, uuid.NewString(), p.ID)
	require.True(t, errors.Is(err, ErrNotFound))

	reward := models.PolicyReward{UserID: user, Points: 6, AchievementTitle: "Applied Prescriptive Plan", LogSummary: "applied"}
	require.NoError(t, rewards.ApplyPolicyReward(ctx, reward))
	require.NoError(t, rewards.ApplyPolicyReward(ctx, reward))
	pts, err := rewards.GetPoints(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 12, pts.Points)
	require.Equal(t, DefaultBadge, pts.BadgeLevel)
	require.Equal(t, 1, pts.StreakDays)
}

func TestEdgeReplaceDropsPrevious(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewEdgeRepo(db)
	user := uuid.NewString()

	_, err := repo.Replace(ctx, user, []models.SCMEdge{{SourceNode: "a", TargetNode: "b", Weight: 0.5}, {SourceNode: "b", TargetNode: "c", Weight: 0.7}})
	require.NoError(t, err)
	out, err := repo.Replace(ctx, user, []models.SCMEdge{{SourceNode: "x", TargetNode: "y", Weight: 0.9}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	edges, err := repo.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, "x", edges[0].SourceNode)
}

func TestProfileUpdateKeepsBlankFields(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepo(db)
	id := uuid.NewString()

	_, err := repo.Get(ctx, id)
	require.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, repo.EnsureProfile(ctx, id, "Asha", "asha@example.com"))
	p, err := repo.Update(ctx, id, "Asha R", "")
	require.NoError(t, err)
	require.Equal(t, "Asha R", p.Name)
	require.Equal(t, "asha@example.com", p.Email)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, p, got)

	_, err = repo.Update(ctx, uuid.NewString(), "x", "")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestLeaderboardCarriesEcoScore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	profiles := NewProfileRepo(db)
	rewards := NewRewardsRepo(db)
	id := uuid.NewString()

	require.NoError(t, profiles.EnsureProfile(ctx, id, "Leader", ""))
	require.NoError(t, rewards.ApplyDailyReward(ctx, models.DailyReward{
		UserID: id, Summary: "s", Tips: "t", Points: 5, EcoScore: 88,
	}))
	entries, err := rewards.Leaderboard(ctx, 100000)
	require.NoError(t, err)
	var found *models.LeaderboardEntry
	for i := range entries {
		if entries[i].UserID == id {
			found = &entries[i]
		}
	}
	require.NotNil(t, found)
	require.Equal(t, "Leader", found.Name)
	require.NotNil(t, found.EcoScore)
	require.Equal(t, 88, *found.EcoScore)
}

func TestTeamJoinIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewTeamRepo(db)
	owner, member := uuid.NewString(), uuid.NewString()

	team, err := repo.Create(ctx, models.Team{TeamName: "Solar", CreatedBy: owner})
	require.NoError(t, err)
	a, err := repo.Join(ctx, team.ID, member)
	require.NoError(t, err)
	b, err := repo.Join(ctx, team.ID, member)
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	_, err = repo.Join(ctx, team.ID+100000, member)
	require.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, repo.Leave(ctx, team.ID, member))
	require.True(t, errors.Is(repo.Leave(ctx, team.ID, member), ErrNotFound))
}
