package storage

import (
	"context"
	"errors"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

type GoalRepo struct {
	db *DB
}

func NewGoalRepo(db *DB) *GoalRepo {
	return &GoalRepo{db: db}
}

func (r *GoalRepo) Get(ctx context.Context, userID string) (models.Goal, error) {
	var g models.Goal
	err := r.db.Pool.QueryRow(ctx, `
SELECT id::text, user_id::text, target_energy_saving, target_water_saving, created_at
FROM goals WHERE user_id=$1`, userID).Scan(&g.ID, &g.UserID, &g.TargetEnergySaving, &g.TargetWaterSaving, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Goal{}, ErrNotFound
	}
	if err != nil {
		return models.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *GoalRepo) Upsert(ctx context.Context, g models.Goal) (models.Goal, error) {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO goals (user_id, target_energy_saving, target_water_saving)
VALUES ($1, $2, $3)
ON CONFLICT (user_id)
DO UPDATE SET
  target_energy_saving = EXCLUDED.target_energy_saving,
  target_water_saving = EXCLUDED.target_water_saving
RETURNING id::text, user_id::text, target_energy_saving, target_water_saving, created_at`,
		g.UserID, g.TargetEnergySaving, g.TargetWaterSaving).
		Scan(&g.ID, &g.UserID, &g.TargetEnergySaving, &g.TargetWaterSaving, &g.CreatedAt)
	if err != nil {
		return models.Goal{}, fmt.Errorf("upsert goal: %w", err)
	}
	return g, nil
}
