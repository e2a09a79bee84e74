package storage

import (
	"context"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

type BillRepo struct {
	db *DB
}

func NewBillRepo(db *DB) *BillRepo {
	return &BillRepo{db: db}
}

const billColumns = `id::text, user_id::text, month, total_amount, energy_usage, water_usage, ai_summary, uploaded_file,
       predicted_next_bill, predicted_saving_percent, created_at`

// One bill per user and month; a re-analysis overwrites the earlier row.
const upsertBillSQL = `
INSERT INTO bills (user_id, month, total_amount, energy_usage, water_usage, ai_summary, uploaded_file)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, month)
DO UPDATE SET
  total_amount = EXCLUDED.total_amount,
  energy_usage = EXCLUDED.energy_usage,
  water_usage = EXCLUDED.water_usage,
  ai_summary = EXCLUDED.ai_summary,
  uploaded_file = EXCLUDED.uploaded_file
RETURNING ` + billColumns

func (r *BillRepo) Upsert(ctx context.Context, b models.Bill) (models.Bill, error) {
	row := r.db.Pool.QueryRow(ctx, upsertBillSQL, b.UserID, b.Month, b.TotalAmount, b.EnergyUsage, b.WaterUsage, b.AISummary, b.UploadedFile)
	out, err := scanBill(row)
	if err != nil {
		return models.Bill{}, fmt.Errorf("upsert bill: %w", err)
	}
	return out, nil
}

func (r *BillRepo) ListRecent(ctx context.Context, userID string, limit int) ([]models.Bill, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+billColumns+` FROM bills WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()
	out := make([]models.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return out, nil
}

func scanBill(row pgx.Row) (models.Bill, error) {
	var b models.Bill
	err := row.Scan(&b.ID, &b.UserID, &b.Month, &b.TotalAmount, &b.EnergyUsage, &b.WaterUsage, &b.AISummary, &b.UploadedFile,
		&b.PredictedNextBill, &b.PredictedSavingPercent, &b.CreatedAt)
	return b, err
}
