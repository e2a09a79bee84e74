package service

import (
	"context"
	"fmt"
	"time"

	"ecopulse/internal/models"
)

const forecastWindow = 7 * 24 * time.Hour

func trend(last, avg float64) float64 {
	if last > avg {
		return 1.1
	}
	return 0.95
}

// Forecast projects the next seven days from the last seven days of metrics.
func (s *Service) Forecast(ctx context.Context, userID string) (models.Forecast, error) {
	now := s.now()
	ms, err := s.st.Metrics.ListSince(ctx, userID, now.Add(-forecastWindow))
	if err != nil {
		return models.Forecast{}, fmt.Errorf("load metrics: %w", err)
	}
	if len(ms) == 0 {
		return models.Forecast{}, invalid("Not enough data for forecast. Add more daily metrics first.")
	}
	avg := averages(ms)
	last := ms[len(ms)-1]
	today := now.UTC()
	f, err := s.st.Forecasts.Insert(ctx, models.Forecast{
		UserID:               userID,
		PredictedEnergyKWh:   avg.Energy * trend(last.EnergyUsage, avg.Energy),
		PredictedWaterLiters: avg.Water * trend(last.WaterUsage, avg.Water),
		PredictedCO2Kg:       avg.CO2 * trend(last.CO2Emission, avg.CO2),
		PeriodStart:          today.Format(time.DateOnly),
		PeriodEnd:            today.AddDate(0, 0, 7).Format(time.DateOnly),
	})
	if err != nil {
		return models.Forecast{}, fmt.Errorf("save forecast: %w", err)
	}
	return f, nil
}

// RefreshGlobalImpact recomputes the community totals row.
func (s *Service) RefreshGlobalImpact(ctx context.Context) (models.GlobalImpact, error) {
	users, co2, err := s.st.Impact.Totals(ctx)
	if err != nil {
		return models.GlobalImpact{}, err
	}
	if co2 < 0 {
		co2 = -co2
	}
	return s.st.Impact.Upsert(ctx, models.GlobalImpact{ID: 1, TotalUsers: users, TotalCO2Saved: co2, LastUpdated: s.now().UTC()})
}
