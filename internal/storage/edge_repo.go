package storage

import (
	"context"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

// EdgeRepo stores each user's structural causal model.
type EdgeRepo struct {
	db *DB
}

func NewEdgeRepo(db *DB) *EdgeRepo {
	return &EdgeRepo{db: db}
}

// Replace swaps the user's whole edge set for edges in one transaction.
func (r *EdgeRepo) Replace(ctx context.Context, userID string, edges []models.SCMEdge) ([]models.SCMEdge, error) {
	out := make([]models.SCMEdge, 0, len(edges))
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM scm_edges WHERE user_id=$1`, userID); err != nil {
			return fmt.Errorf("delete scm edges: %w", err)
		}
		for _, e := range edges {
			e.UserID = userID
			if err := tx.QueryRow(ctx, `
INSERT INTO scm_edges (user_id, source_node, target_node, weight)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`, userID, e.SourceNode, e.TargetNode, e.Weight).Scan(&e.ID, &e.CreatedAt); err != nil {
				return fmt.Errorf("insert scm edge: %w", err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EdgeRepo) List(ctx context.Context, userID string) ([]models.SCMEdge, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, user_id::text, source_node, target_node, weight, created_at
FROM scm_edges WHERE user_id=$1 ORDER BY weight DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list scm edges: %w", err)
	}
	defer rows.Close()
	out := make([]models.SCMEdge, 0)
	for rows.Next() {
		var e models.SCMEdge
		if err := rows.Scan(&e.ID, &e.UserID, &e.SourceNode, &e.TargetNode, &e.Weight, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scm edge: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scm edges: %w", err)
	}
	return out, nil
}
