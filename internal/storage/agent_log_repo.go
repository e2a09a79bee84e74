package storage

import (
	"context"
	"fmt"

	"ecopulse/internal/gateway"
	"ecopulse/internal/models"
)

// AgentLogRepo writes the user-visible activity feed.
type AgentLogRepo struct {
	db *DB
}

func NewAgentLogRepo(db *DB) *AgentLogRepo {
	return &AgentLogRepo{db: db}
}

func (r *AgentLogRepo) Insert(ctx context.Context, l models.AgentLog) error {
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO agent_logs (user_id, summary, ai_action) VALUES ($1, $2, $3)`, l.UserID, l.Summary, l.AIAction)
	if err != nil {
		return fmt.Errorf("insert agent log: %w", err)
	}
	return nil
}

func (r *AgentLogRepo) ListRecent(ctx context.Context, userID string, limit int) ([]models.AgentLog, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, user_id::text, summary, ai_action, created_at
FROM agent_logs WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list agent logs: %w", err)
	}
	defer rows.Close()
	out := make([]models.AgentLog, 0)
	for rows.Next() {
		var l models.AgentLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Summary, &l.AIAction, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent log: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent logs: %w", err)
	}
	return out, nil
}

// GatewayAuditRepo records every gateway call for cost and failure tracking.
type GatewayAuditRepo struct {
	db *DB
}

func NewGatewayAuditRepo(db *DB) *GatewayAuditRepo {
	return &GatewayAuditRepo{db: db}
}

func (r *GatewayAuditRepo) RecordCall(ctx context.Context, rec gateway.CallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO gateway_calls (operation, user_id, backend, model, status, error_type, duration_ms)
VALUES ($1, NULLIF($2,'')::uuid, $3, $4, $5, NULLIF($6,''), $7)`,
		rec.Operation, rec.UserID, rec.Backend, rec.Model, rec.Status, rec.ErrorType, rec.DurationMS)
	if err != nil {
		return fmt.Errorf("insert gateway call: %w", err)
	}
	return nil
}
