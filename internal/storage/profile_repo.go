package storage

import (
	"context"
	"errors"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

const profileColumns = `id::text, name, email, eco_score, created_at`

type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// EnsureProfile creates the caller's profile on first sight and keeps name/email fresh.
func (r *ProfileRepo) EnsureProfile(ctx context.Context, id, name, email string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO profiles (id, name, email)
VALUES ($1, $2, $3)
ON CONFLICT (id)
DO UPDATE SET
  name = COALESCE(NULLIF(EXCLUDED.name,''), profiles.name),
  email = COALESCE(NULLIF(EXCLUDED.email,''), profiles.email)`, id, name, email)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) Get(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	err := r.db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Email, &p.EcoScore, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Profile{}, ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update sets name and email. An empty value keeps the stored one.
func (r *ProfileRepo) Update(ctx context.Context, id, name, email string) (models.Profile, error) {
	var p models.Profile
	err := r.db.Pool.QueryRow(ctx, `
UPDATE profiles SET
  name = COALESCE(NULLIF($2,''), name),
  email = COALESCE(NULLIF($3,''), email)
WHERE id=$1
RETURNING `+profileColumns, id, name, email).Scan(&p.ID, &p.Name, &p.Email, &p.EcoScore, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Profile{}, ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepo) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Profile, 0)
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.EcoScore, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}
