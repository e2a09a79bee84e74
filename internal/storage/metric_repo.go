package storage

import (
	"context"
	"fmt"
	"time"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

type MetricRepo struct {
	db *DB
}

func NewMetricRepo(db *DB) *MetricRepo {
	return &MetricRepo{db: db}
}

const metricColumns = `id::text, user_id::text, timestamp, energy_usage, water_usage, co2_emission`

func (r *MetricRepo) Insert(ctx context.Context, m models.Metric) (models.Metric, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	row := r.db.Pool.QueryRow(ctx, `
INSERT INTO metrics (user_id, timestamp, energy_usage, water_usage, co2_emission)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+metricColumns, m.UserID, m.Timestamp, m.EnergyUsage, m.WaterUsage, m.CO2Emission)
	out, err := scanMetric(row)
	if err != nil {
		return models.Metric{}, fmt.Errorf("insert metric: %w", err)
	}
	return out, nil
}

// ListRecent returns the newest metrics first.
func (r *MetricRepo) ListRecent(ctx context.Context, userID string, limit int) ([]models.Metric, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+metricColumns+` FROM metrics WHERE user_id=$1 ORDER BY timestamp DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent metrics: %w", err)
	}
	return collectMetrics(rows)
}

// ListSince returns metrics at or after since, oldest first.
func (r *MetricRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]models.Metric, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+metricColumns+` FROM metrics WHERE user_id=$1 AND timestamp >= $2 ORDER BY timestamp ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list metrics since: %w", err)
	}
	return collectMetrics(rows)
}

func collectMetrics(rows pgx.Rows) ([]models.Metric, error) {
	defer rows.Close()
	out := make([]models.Metric, 0)
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return out, nil
}

func scanMetric(row pgx.Row) (models.Metric, error) {
	var m models.Metric
	err := row.Scan(&m.ID, &m.UserID, &m.Timestamp, &m.EnergyUsage, &m.WaterUsage, &m.CO2Emission)
	return m, err
}
