package storage

import (
	"context"
	"fmt"

	"ecopulse/internal/models"
)

// DesignRepo stores generated blueprints and image analyses.
type DesignRepo struct {
	db *DB
}

func NewDesignRepo(db *DB) *DesignRepo {
	return &DesignRepo{db: db}
}

func (r *DesignRepo) InsertBlueprint(ctx context.Context, b models.Blueprint) (models.Blueprint, error) {
	if b.GreenFeatures == nil {
		b.GreenFeatures = []string{}
	}
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO blueprints (user_id, plot_size, plot_unit, facing_direction, num_floors, num_rooms, green_features,
                        blueprint_image_url, energy_insights, sustainability_score, vastu_rating, ai_analysis)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id::text, created_at`,
		b.UserID, b.PlotSize, b.PlotUnit, b.FacingDirection, b.NumFloors, b.NumRooms, b.GreenFeatures,
		b.BlueprintImageURL, b.EnergyInsights, b.SustainabilityScore, b.VastuRating, b.AIAnalysis).
		Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return models.Blueprint{}, fmt.Errorf("insert blueprint: %w", err)
	}
	return b, nil
}

func (r *DesignRepo) InsertImageAnalysis(ctx context.Context, a models.ImageAnalysis) (models.ImageAnalysis, error) {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO image_analyses (user_id, mode, prompt, analysis, image_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING id::text, created_at`, a.UserID, a.Mode, a.Prompt, a.Analysis, a.ImageURL).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return models.ImageAnalysis{}, fmt.Errorf("insert image analysis: %w", err)
	}
	return a, nil
}
