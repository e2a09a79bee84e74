package storage

import (
	"context"
	"errors"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

type TeamRepo struct {
	db *DB
}

func NewTeamRepo(db *DB) *TeamRepo {
	return &TeamRepo{db: db}
}

func (r *TeamRepo) List(ctx context.Context) ([]models.Team, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT t.id, t.team_name, t.description, t.created_by::text, t.created_at, COUNT(m.id)
FROM teams t
LEFT JOIN team_members m ON m.team_id = t.id
GROUP BY t.id
ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()
	out := make([]models.Team, 0)
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.TeamName, &t.Description, &t.CreatedBy, &t.CreatedAt, &t.MemberCount); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return out, nil
}

// Create inserts the team and enrols its creator as owner.
func (r *TeamRepo) Create(ctx context.Context, t models.Team) (models.Team, error) {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
INSERT INTO teams (team_name, description, created_by)
VALUES ($1, $2, $3)
RETURNING id, created_at`, t.TeamName, t.Description, t.CreatedBy).Scan(&t.ID, &t.CreatedAt); err != nil {
			return fmt.Errorf("insert team: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO team_members (team_id, user_id, role) VALUES ($1, $2, 'owner')`, t.ID, t.CreatedBy); err != nil {
			return fmt.Errorf("insert team owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Team{}, err
	}
	t.MemberCount = 1
	return t, nil
}

// Join is idempotent: joining twice keeps the first membership.
func (r *TeamRepo) Join(ctx context.Context, teamID int64, userID string) (models.TeamMember, error) {
	var m models.TeamMember
	err := r.db.Pool.QueryRow(ctx, `
WITH ins AS (
  INSERT INTO team_members (team_id, user_id, role)
  SELECT id, $2::uuid, 'member' FROM teams WHERE id=$1
  ON CONFLICT (team_id, user_id) DO NOTHING
  RETURNING id, team_id, user_id, role, joined_at
)
SELECT id, team_id, user_id::text, role, joined_at FROM ins
UNION ALL
SELECT id, team_id, user_id::text, role, joined_at FROM team_members WHERE team_id=$1 AND user_id=$2
LIMIT 1`, teamID, userID).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.TeamMember{}, ErrNotFound
	}
	if err != nil {
		return models.TeamMember{}, fmt.Errorf("join team: %w", err)
	}
	return m, nil
}

func (r *TeamRepo) Leave(ctx context.Context, teamID int64, userID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM team_members WHERE team_id=$1 AND user_id=$2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("leave team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
