package storage

import (
	"context"
	"errors"
	"fmt"

	"ecopulse/internal/models"

	"github.com/jackc/pgx/v5"
)

type ForecastRepo struct {
	db *DB
}

func NewForecastRepo(db *DB) *ForecastRepo {
	return &ForecastRepo{db: db}
}

const forecastColumns = `id, user_id::text, predicted_energy_kwh, predicted_water_liters, predicted_co2_kg,
       period_start::text, period_end::text, created_at`

func (r *ForecastRepo) Insert(ctx context.Context, f models.Forecast) (models.Forecast, error) {
	row := r.db.Pool.QueryRow(ctx, `
INSERT INTO forecasts (user_id, predicted_energy_kwh, predicted_water_liters, predicted_co2_kg, period_start, period_end)
VALUES ($1, $2, $3, $4, $5::text::date, $6::text::date)
RETURNING `+forecastColumns, f.UserID, f.PredictedEnergyKWh, f.PredictedWaterLiters, f.PredictedCO2Kg, f.PeriodStart, f.PeriodEnd)
	out, err := scanForecast(row)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("insert forecast: %w", err)
	}
	return out, nil
}

func (r *ForecastRepo) Latest(ctx context.Context, userID string) (models.Forecast, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+forecastColumns+` FROM forecasts WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`, userID)
	out, err := scanForecast(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Forecast{}, ErrNotFound
	}
	if err != nil {
		return models.Forecast{}, fmt.Errorf("latest forecast: %w", err)
	}
	return out, nil
}

func scanForecast(row pgx.Row) (models.Forecast, error) {
	var f models.Forecast
	err := row.Scan(&f.ID, &f.UserID, &f.PredictedEnergyKWh, &f.PredictedWaterLiters, &f.PredictedCO2Kg, &f.PeriodStart, &f.PeriodEnd, &f.CreatedAt)
	return f, err
}
