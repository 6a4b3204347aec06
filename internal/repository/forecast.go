package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

const forecastColumns = `id, disease_type, month, is_forecast,
	total_tests, positive_cases, infection_rate,
	forecasted_total_tests, forecasted_positive_cases, forecasted_infection_rate,
	created_at, updated_at`

// ForecastRepository reads and writes the precomputed per-disease monthly
// series. The forecasting computation itself is an out-of-band job that
// writes through SaveForecast.
type ForecastRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
	now func() time.Time
}

// NewForecastRepository creates a new forecast repository.
func NewForecastRepository(db *pgxpool.Pool, logger *logrus.Logger) *ForecastRepository {
	return &ForecastRepository{
		db:  db,
		log: logger,
		now: time.Now,
	}
}

// GetForecast returns all rows for the disease ordered ascending by month.
// Zero rows yields ErrNoForecastData so callers can render a distinct
// "generate forecasts first" message.
func (r *ForecastRepository) GetForecast(ctx context.Context, disease domain.DiseaseType) ([]*domain.ForecastPoint, error) {
	if !disease.IsValid() {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrInvalidDiseaseType)
	}

	query := fmt.Sprintf(`SELECT %s FROM water_ml_forecasts WHERE disease_type = $1 ORDER BY month`, forecastColumns)

	rows, err := r.db.Query(ctx, query, disease)
	if err != nil {
		return nil, r.fail(disease, "query forecast", err)
	}
	defer rows.Close()

	points, err := scanForecastRows(rows)
	if err != nil {
		return nil, r.fail(disease, "scan forecast", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrNoForecastData)
	}
	return points, nil
}

// GetForecastWindowed returns the rows whose month is on or after the current
// month minus the given number of months. The cutoff comparison is plain text
// comparison on the "YYYY-MM" keys.
func (r *ForecastRepository) GetForecastWindowed(ctx context.Context, disease domain.DiseaseType, months int) ([]*domain.ForecastPoint, error) {
	if !disease.IsValid() {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrInvalidDiseaseType)
	}

	cutoff := domain.CutoffMonth(r.now(), months)
	query := fmt.Sprintf(`SELECT %s FROM water_ml_forecasts WHERE disease_type = $1 AND month >= $2 ORDER BY month`, forecastColumns)

	rows, err := r.db.Query(ctx, query, disease, cutoff)
	if err != nil {
		return nil, r.fail(disease, "query windowed forecast", err)
	}
	defer rows.Close()

	points, err := scanForecastRows(rows)
	if err != nil {
		return nil, r.fail(disease, "scan windowed forecast", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrNoForecastData)
	}
	return points, nil
}

// SaveForecast bulk-inserts the given points, assigning a fresh id to each.
// No dedup or upsert is performed; a failed batch is reported whole.
func (r *ForecastRepository) SaveForecast(ctx context.Context, points []*domain.ForecastPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	now := r.now()
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`INSERT INTO water_ml_forecasts (` + forecastColumns + `) VALUES `)
	for i, p := range points {
		p.ID = strings.ReplaceAll(uuid.New().String(), "-", "")
		p.CreatedAt = now
		p.UpdatedAt = now
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 12
		sb.WriteString("(")
		for j := 1; j <= 12; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			p.ID, p.DiseaseType, p.Month, p.IsForecast,
			p.TotalTests, p.PositiveCases, p.InfectionRate,
			p.ForecastedTotalTests, p.ForecastedPositiveCases, p.ForecastedInfectionRate,
			p.CreatedAt, p.UpdatedAt,
		)
	}

	if _, err := r.db.Exec(ctx, sb.String(), args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"points": len(points),
			"error":  err,
		}).Error("Failed to save forecast points")
		return 0, fmt.Errorf("saving forecast points: %w", domain.ErrForecastStore)
	}

	r.log.WithField("points", len(points)).Info("Forecast points saved")
	return len(points), nil
}

// ClearOldForecasts deletes forecast rows (is_forecast = true) for the disease
// with a month key older than the keep cutoff. Historical rows are never
// deleted by this operation regardless of age.
func (r *ForecastRepository) ClearOldForecasts(ctx context.Context, disease domain.DiseaseType, keepMonths int) error {
	if !disease.IsValid() {
		return fmt.Errorf("disease %q: %w", disease, domain.ErrInvalidDiseaseType)
	}

	cutoff := domain.CutoffMonth(r.now(), keepMonths)
	tag, err := r.db.Exec(ctx, `
		DELETE FROM water_ml_forecasts
		WHERE disease_type = $1 AND is_forecast = TRUE AND month < $2`,
		disease, cutoff,
	)
	if err != nil {
		return r.fail(disease, "clear old forecasts", err)
	}

	r.log.WithFields(logrus.Fields{
		"disease": disease,
		"cutoff":  cutoff,
		"deleted": tag.RowsAffected(),
	}).Info("Old forecast rows cleared")
	return nil
}

func (r *ForecastRepository) fail(disease domain.DiseaseType, stage string, err error) error {
	r.log.WithFields(logrus.Fields{
		"disease": disease,
		"stage":   stage,
		"error":   err,
	}).Error("Forecast store operation failed")
	return fmt.Errorf("%s: %w", stage, domain.ErrForecastStore)
}

// forecastRowScanner abstracts pgx.Rows for scanning.
type forecastRowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanForecastRows(rows forecastRowScanner) ([]*domain.ForecastPoint, error) {
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
