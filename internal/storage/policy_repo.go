package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

// PolicyRepo stores prescriptive plans and their digital-twin runs.
type PolicyRepo struct {
	db *DB
}

func NewPolicyRepo(db *DB) *PolicyRepo {
	return &PolicyRepo{db: db}
}

// CreatePlan inserts a policy and its simulation run together.
func (r *PolicyRepo) CreatePlan(ctx context.Context, p models.Policy, run models.DTRun) (models.Policy, models.DTRun, error) {
	interventions := p.Interventions
	if interventions == nil {
		interventions = []models.Intervention{}
	}
	ivJSON, err := json.Marshal(interventions)
	if err != nil {
		return models.Policy{}, models.DTRun{}, fmt.Errorf("encode interventions: %w", err)
	}
	items := run.SimulationItems
	if len(items) == 0 {
		items = ivJSON
	}
	err = r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var raw string
		if err := tx.QueryRow(ctx, `
INSERT INTO policies (user_id, rationale, interventions)
VALUES ($1, $2, $3::text::jsonb)
RETURNING id::text, user_id::text, rationale, interventions::text, created_at`, p.UserID, p.Rationale, string(ivJSON)).
			Scan(&p.ID, &p.UserID, &p.Rationale, &raw, &p.CreatedAt); err != nil {
			return fmt.Errorf("insert policy: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &p.Interventions); err != nil {
			return fmt.Errorf("decode interventions: %w", err)
		}
		var simRaw string
		if err := tx.QueryRow(ctx, `
INSERT INTO dt_runs (user_id, policy_id, total_kg, total_water_kl, confidence_level, simulation_items)
VALUES ($1, $2::text::uuid, $3, $4, $5, $6::text::jsonb)
RETURNING id::text, user_id::text, policy_id::text, total_kg, total_water_kl, confidence_level, simulation_items::text, created_at`,
			p.UserID, p.ID, run.TotalKg, run.TotalWaterKl, run.ConfidenceLevel, string(items)).
			Scan(&run.ID, &run.UserID, &run.PolicyID, &run.TotalKg, &run.TotalWaterKl, &run.ConfidenceLevel, &simRaw, &run.CreatedAt); err != nil {
			return fmt.Errorf("insert dt run: %w", err)
		}
		run.SimulationItems = json.RawMessage(simRaw)
		return nil
	})
	if err != nil {
		return models.Policy{}, models.DTRun{}, err
	}
	return p, run, nil
}

// GetWithRuns loads a policy owned by userID together with its runs, newest first.
func (r *PolicyRepo) GetWithRuns(ctx context.Context, userID, policyID string) (models.Policy, error) {
	var p models.Policy
	var raw string
	err := r.db.Pool.QueryRow(ctx, `
SELECT id::text, user_id::text, rationale, interventions::text, created_at
FROM policies WHERE id::text=$1 AND user_id=$2`, policyID, userID).Scan(&p.ID, &p.UserID, &p.Rationale, &raw, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Policy{}, ErrNotFound
	}
	if err != nil {
		return models.Policy{}, fmt.Errorf("get policy: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &p.Interventions); err != nil {
		return models.Policy{}, fmt.Errorf("decode interventions: %w", err)
	}
	runs, err := r.listRuns(ctx, []string{p.ID})
	if err != nil {
		return models.Policy{}, err
	}
	p.DTRuns = runs[p.ID]
	return p, nil
}

func (r *PolicyRepo) ListRecent(ctx context.Context, userID string, limit int) ([]models.Policy, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, user_id::text, rationale, interventions::text, created_at
FROM policies WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()
	out := make([]models.Policy, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var p models.Policy
		var raw string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Rationale, &raw, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		// tolerate rows written by other clients with a non-list payload
		_ = json.Unmarshal([]byte(raw), &p.Interventions)
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}
	runs, err := r.listRuns(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].DTRuns = runs[out[i].ID]
	}
	return out, nil
}

func (r *PolicyRepo) listRuns(ctx context.Context, policyIDs []string) (map[string][]models.DTRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, user_id::text, policy_id::text, total_kg, total_water_kl, confidence_level, simulation_items::text, created_at
FROM dt_runs WHERE policy_id::text = ANY($1) ORDER BY created_at DESC`, policyIDs)
	if err != nil {
		return nil, fmt.Errorf("list dt runs: %w", err)
	}
	defer rows.Close()
	out := map[string][]models.DTRun{}
	for rows.Next() {
		var d models.DTRun
		var raw string
		if err := rows.Scan(&d.ID, &d.UserID, &d.PolicyID, &d.TotalKg, &d.TotalWaterKl, &d.ConfidenceLevel, &raw, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dt run: %w", err)
		}
		d.SimulationItems = json.RawMessage(raw)
		out[d.PolicyID] = append(out[d.PolicyID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dt runs: %w", err)
	}
	return out, nil
}
