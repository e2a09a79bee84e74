package storage

import (
	"context"
	"errors"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

// RewardsRepo owns eco points, achievements and challenges.
type RewardsRepo struct {
	db *DB
}

func NewRewardsRepo(db *DB) *RewardsRepo {
	return &RewardsRepo{db: db}
}

const DefaultBadge = "Eco Starter"

func (r *RewardsRepo) GetPoints(ctx context.Context, userID string) (models.EcoPoints, error) {
	var p models.EcoPoints
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, user_id::text, points, badge_level, streak_days, updated_at
FROM eco_points WHERE user_id=$1`, userID).Scan(&p.ID, &p.UserID, &p.Points, &p.BadgeLevel, &p.StreakDays, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.EcoPoints{}, ErrNotFound
	}
	if err != nil {
		return models.EcoPoints{}, fmt.Errorf("get eco points: %w", err)
	}
	return p, nil
}

// ApplyPolicyReward credits points for an applied plan, records the achievement
// and logs the action atomically. A first-time user starts at the default badge with a one-day streak.
func (r *RewardsRepo) ApplyPolicyReward(ctx context.Context, rw models.PolicyReward) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO eco_points (user_id, points, badge_level, streak_days)
VALUES ($1, $2, $3, 1)
ON CONFLICT (user_id)
DO UPDATE SET points = eco_points.points + EXCLUDED.points, updated_at = NOW()`, rw.UserID, rw.Points, DefaultBadge); err != nil {
			return fmt.Errorf("credit eco points: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO achievements (user_id, title, description) VALUES ($1, $2, $3)`,
			rw.UserID, rw.AchievementTitle, rw.AchievementDesc); err != nil {
			return fmt.Errorf("insert achievement: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO agent_logs (user_id, summary, ai_action) VALUES ($1, $2, 'pcwno_apply')`,
			rw.UserID, rw.LogSummary); err != nil {
			return fmt.Errorf("insert agent log: %w", err)
		}
		return nil
	})
}

// ApplyDailyReward stores the copilot tips, adds points, extends the streak and
// sets the eco score in one transaction.
func (r *RewardsRepo) ApplyDailyReward(ctx context.Context, rw models.DailyReward) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO agent_logs (user_id, summary, ai_action) VALUES ($1, $2, $3)`,
			rw.UserID, rw.Summary, rw.Tips); err != nil {
			return fmt.Errorf("insert agent log: %w", err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO eco_points (user_id, points, badge_level, streak_days)
VALUES ($1, $2, $3, 1)
ON CONFLICT (user_id)
DO UPDATE SET
  points = eco_points.points + EXCLUDED.points,
  streak_days = eco_points.streak_days + 1,
  updated_at = NOW()`, rw.UserID, rw.Points, DefaultBadge); err != nil {
			return fmt.Errorf("update eco points: %w", err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO streaks (user_id, current_streak, best_streak, last_active_date)
VALUES ($1, 1, 1, CURRENT_DATE)
ON CONFLICT (user_id)
DO UPDATE SET
  current_streak = CASE
    WHEN streaks.last_active_date = CURRENT_DATE THEN streaks.current_streak
    WHEN streaks.last_active_date = CURRENT_DATE - 1 THEN streaks.current_streak + 1
    ELSE 1 END,
  best_streak = GREATEST(streaks.best_streak, CASE
    WHEN streaks.last_active_date = CURRENT_DATE THEN streaks.current_streak
    WHEN streaks.last_active_date = CURRENT_DATE - 1 THEN streaks.current_streak + 1
    ELSE 1 END),
  last_active_date = CURRENT_DATE,
  updated_at = NOW()`, rw.UserID); err != nil {
			return fmt.Errorf("update streak: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE profiles SET eco_score=$2 WHERE id=$1`, rw.UserID, rw.EcoScore); err != nil {
			return fmt.Errorf("update eco score: %w", err)
		}
		return nil
	})
}

func (r *RewardsRepo) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, user_id::text, title, description, earned_at
FROM achievements WHERE user_id=$1 ORDER BY earned_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()
	out := make([]models.Achievement, 0)
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievements: %w", err)
	}
	return out, nil
}

func (r *RewardsRepo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT e.user_id::text, COALESCE(p.name,''), p.eco_score, e.points, e.badge_level, e.streak_days
FROM eco_points e
LEFT JOIN profiles p ON p.id = e.user_id
ORDER BY e.points DESC, e.updated_at ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()
	out := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.EcoScore, &e.Points, &e.BadgeLevel, &e.StreakDays); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return out, nil
}

func (r *RewardsRepo) ListActiveChallenges(ctx context.Context) ([]models.Challenge, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, title, description, reward_points, start_date::text, end_date::text, is_active, created_at
FROM challenges WHERE is_active ORDER BY end_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()
	out := make([]models.Challenge, 0)
	for rows.Next() {
		var c models.Challenge
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.RewardPoints, &c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenges: %w", err)
	}
	return out, nil
}

// CompleteChallenge awards an active challenge's points and records the achievement.
func (r *RewardsRepo) CompleteChallenge(ctx context.Context, userID string, challengeID int64) (models.Challenge, error) {
	var c models.Challenge
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
SELECT id, title, description, reward_points, start_date::text, end_date::text, is_active, created_at
FROM challenges WHERE id=$1 AND is_active`, challengeID).
			Scan(&c.ID, &c.Title, &c.Description, &c.RewardPoints, &c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load challenge: %w", err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO eco_points (user_id, points, badge_level, streak_days)
VALUES ($1, $2, $3, 0)
ON CONFLICT (user_id)
DO UPDATE SET points = eco_points.points + EXCLUDED.points, updated_at = NOW()`, userID, c.RewardPoints, DefaultBadge); err != nil {
			return fmt.Errorf("credit challenge points: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO achievements (user_id, title, description) VALUES ($1, $2, $3)`,
			userID, "Completed: "+c.Title, fmt.Sprintf("Earned %d eco points", c.RewardPoints)); err != nil {
			return fmt.Errorf("insert achievement: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Challenge{}, err
	}
	return c, nil
}
