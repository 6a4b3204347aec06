package litestore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/water-ml-server/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewStoreWithDB(db, logger), mock
}

func TestComputeDiseaseStatsQueryFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM water_ml_tests`).
		WillReturnError(errors.New("disk I/O error"))

	_, err := store.ComputeDiseaseStats(context.Background())
	assert.ErrorIs(t, err, domain.ErrAggregationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComputeDiseaseStatsLaterStageFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM water_ml_tests`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`SELECT\s+COUNT\(CASE WHEN oncho`).
		WillReturnError(errors.New("disk I/O error"))

	_, err := store.ComputeDiseaseStats(context.Background())
	assert.ErrorIs(t, err, domain.ErrAggregationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForecastQueryFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM water_ml_forecasts`).
		WillReturnError(errors.New("database is locked"))

	_, err := store.GetForecast(context.Background(), domain.DiseaseOncho)
	assert.ErrorIs(t, err, domain.ErrForecastStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveForecastBeginFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	_, err := store.SaveForecast(context.Background(), []*domain.ForecastPoint{
		forecastPoint(domain.DiseaseOncho, "2025-01", true),
	})
	assert.ErrorIs(t, err, domain.ErrForecastStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
