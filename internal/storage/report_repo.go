package storage

import (
	"context"
	"fmt"

	"ecopulse/internal/models"
)

// ReportRepo stores prediction reports and the feedback users leave on them.
type ReportRepo struct {
	db *DB
}

func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) Insert(ctx context.Context, rep models.Report) (models.Report, error) {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO reports (user_id, ai_insight, predicted_saving)
VALUES ($1, $2, $3)
RETURNING id::text, user_id::text, ai_insight, predicted_saving, created_at`, rep.UserID, rep.AIInsight, rep.PredictedSaving).
		Scan(&rep.ID, &rep.UserID, &rep.AIInsight, &rep.PredictedSaving, &rep.CreatedAt)
	if err != nil {
		return models.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return rep, nil
}

func (r *ReportRepo) InsertFeedback(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO user_feedback (user_id, report_id, feedback_type)
VALUES ($1, $2::text::uuid, $3)
RETURNING id, user_id::text, report_id::text, feedback_type, created_at`, f.UserID, f.ReportID, f.FeedbackType).
		Scan(&f.ID, &f.UserID, &f.ReportID, &f.FeedbackType, &f.CreatedAt)
	if err != nil {
		return models.Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return f, nil
}
