package litestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

const forecastColumns = `id, disease_type, month, is_forecast,
	total_tests, positive_cases, infection_rate,
	forecasted_total_tests, forecasted_positive_cases, forecasted_infection_rate,
	created_at, updated_at`

// GetForecast returns all rows for the disease ordered ascending by month.
// Zero rows yields ErrNoForecastData.
func (s *Store) GetForecast(ctx context.Context, disease domain.DiseaseType) ([]*domain.ForecastPoint, error) {
	if !disease.IsValid() {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrInvalidDiseaseType)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+forecastColumns+` FROM water_ml_forecasts WHERE disease_type = ? ORDER BY month`,
		disease,
	)
	if err != nil {
		return nil, s.forecastFail(disease, "query forecast", err)
	}
	defer rows.Close()

	points, err := s.collectForecastRows(rows)
	if err != nil {
		return nil, s.forecastFail(disease, "scan forecast", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrNoForecastData)
	}
	return points, nil
}

// GetForecastWindowed filters to months on or after the cutoff, compared as
// "YYYY-MM" text.
func (s *Store) GetForecastWindowed(ctx context.Context, disease domain.DiseaseType, months int) ([]*domain.ForecastPoint, error) {
	if !disease.IsValid() {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrInvalidDiseaseType)
	}

	cutoff := domain.CutoffMonth(s.now(), months)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+forecastColumns+` FROM water_ml_forecasts WHERE disease_type = ? AND month >= ? ORDER BY month`,
		disease, cutoff,
	)
	if err != nil {
		return nil, s.forecastFail(disease, "query windowed forecast", err)
	}
	defer rows.Close()

	points, err := s.collectForecastRows(rows)
	if err != nil {
		return nil, s.forecastFail(disease, "scan windowed forecast", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrNoForecastData)
	}
	return points, nil
}

// SaveForecast bulk-inserts the given points with fresh ids.
func (s *Store) SaveForecast(ctx context.Context, points []*domain.ForecastPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.forecastFail("", "begin save", err)
	}
	defer tx.Rollback()

	now := s.now()
	for _, p := range points {
		p.ID = strings.ReplaceAll(uuid.New().String(), "-", "")
		p.CreatedAt = now
		p.UpdatedAt = now
		_, err := tx.ExecContext(ctx,
			`INSERT INTO water_ml_forecasts (`+forecastColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.DiseaseType, p.Month, p.IsForecast,
			p.TotalTests, p.PositiveCases, p.InfectionRate,
			p.ForecastedTotalTests, p.ForecastedPositiveCases, p.ForecastedInfectionRate,
			p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return 0, s.forecastFail(p.DiseaseType, "insert point", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, s.forecastFail("", "commit save", err)
	}

	s.log.WithField("points", len(points)).Info("Forecast points saved")
	return len(points), nil
}

// ClearOldForecasts deletes forecast rows older than the keep cutoff.
// Historical rows are never touched.
func (s *Store) ClearOldForecasts(ctx context.Context, disease domain.DiseaseType, keepMonths int) error {
	if !disease.IsValid() {
		return fmt.Errorf("disease %q: %w", disease, domain.ErrInvalidDiseaseType)
	}

	cutoff := domain.CutoffMonth(s.now(), keepMonths)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM water_ml_forecasts
		WHERE disease_type = ? AND is_forecast = 1 AND month < ?`,
		disease, cutoff,
	)
	if err != nil {
		return s.forecastFail(disease, "clear old forecasts", err)
	}

	deleted, _ := res.RowsAffected()
	s.log.WithFields(logrus.Fields{
		"disease": disease,
		"cutoff":  cutoff,
		"deleted": deleted,
	}).Info("Old forecast rows cleared")
	return nil
}

func (s *Store) collectForecastRows(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]*domain.ForecastPoint, error) {
	var points []*domain.ForecastPoint
	for rows.Next() {
		var p domain.ForecastPoint
		err := rows.Scan(
			&p.ID, &p.DiseaseType, &p.Month, &p.IsForecast,
			&p.TotalTests, &p.PositiveCases, &p.InfectionRate,
			&p.ForecastedTotalTests, &p.ForecastedPositiveCases, &p.ForecastedInfectionRate,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Store) forecastFail(disease domain.DiseaseType, stage string, err error) error {
	s.log.WithFields(logrus.Fields{
		"disease": disease,
		"stage":   stage,
		"error":   err,
	}).Error("Forecast store operation failed")
	return fmt.Errorf("%s: %w", stage, domain.ErrForecastStore)
}
