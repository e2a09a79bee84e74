package storage

import (
	"context"
	"errors"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

// ImpactRepo maintains the single community-wide impact row (id=1).
type ImpactRepo struct {
	db *DB
}

func NewImpactRepo(db *DB) *ImpactRepo {
	return &ImpactRepo{db: db}
}

// Totals counts profiles and sums every recorded CO2 emission.
func (r *ImpactRepo) Totals(ctx context.Context) (int, float64, error) {
	var users int
	var co2 float64
	err := r.db.Pool.QueryRow(ctx, `
SELECT (SELECT COUNT(*) FROM profiles), (SELECT COALESCE(SUM(co2_emission), 0) FROM metrics)`).Scan(&users, &co2)
	if err != nil {
		return 0, 0, fmt.Errorf("impact totals: %w", err)
	}
	return users, co2, nil
}

func (r *ImpactRepo) Upsert(ctx context.Context, g models.GlobalImpact) (models.GlobalImpact, error) {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO global_impact (id, total_users, total_co2_saved, last_updated)
VALUES (1, $1, $2, $3)
ON CONFLICT (id)
DO UPDATE SET
  total_users = EXCLUDED.total_users,
  total_co2_saved = EXCLUDED.total_co2_saved,
  last_updated = EXCLUDED.last_updated
RETURNING id, total_users, total_co2_saved, last_updated`, g.TotalUsers, g.TotalCO2Saved, g.LastUpdated).
		Scan(&g.ID, &g.TotalUsers, &g.TotalCO2Saved, &g.LastUpdated)
	if err != nil {
		return models.GlobalImpact{}, fmt.Errorf("upsert global impact: %w", err)
	}
	return g, nil
}

func (r *ImpactRepo) Get(ctx context.Context) (models.GlobalImpact, error) {
	var g models.GlobalImpact
	err := r.db.Pool.QueryRow(ctx, `SELECT id, total_users, total_co2_saved, last_updated FROM global_impact WHERE id=1`).
		Scan(&g.ID, &g.TotalUsers, &g.TotalCO2Saved, &g.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.GlobalImpact{}, ErrNotFound
	}
	if err != nil {
		return models.GlobalImpact{}, fmt.Errorf("get global impact: %w", err)
	}
	return g, nil
}
