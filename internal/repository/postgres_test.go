package repository

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/water-ml-server/internal/domain"
)

// getTestPool returns a connection pool for integration tests.
// Skip test if TEST_DATABASE_URL is not set. The target database must have
// the migrations applied.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, table := range []string{"water_ml_session", "water_ml_tests", "water_ml_forecasts", "water_ml_user"} {
		_, err = pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
	return pool
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestStatsRepositoryEmptyTable(t *testing.T) {
	pool := getTestPool(t)
	repo := NewStatsRepository(pool, testLogger())

	snap, err := repo.ComputeDiseaseStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.TotalTests)
	assert.Equal(t, "0", snap.AnyDiseaseProbability)
}

func TestTestRecordRepositoryRoundTrip(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()

	users := NewUserRepository(pool, testLogger())
	u := &domain.User{Name: "Ama", Email: "ama@example.org"}
	require.NoError(t, users.Create(ctx, u))

	records := NewTestRecordRepository(pool, testLogger())
	pos := domain.OutcomePositive
	rec := &domain.TestRecord{UserID: u.ID, Oncho: &pos}
	require.NoError(t, records.Create(ctx, rec))

	got, err := records.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePositive, *got.Oncho)
	assert.Nil(t, got.Schistosomiasis)

	stats := NewStatsRepository(pool, testLogger())
	snap, err := stats.ComputeDiseaseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.TotalTests)
	assert.Equal(t, "100.0", snap.Diseases[domain.DiseaseOncho].Rate)
}

func TestForecastRepositoryRoundTrip(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()

	repo := NewForecastRepository(pool, testLogger())

	total := 100
	saved, err := repo.SaveForecast(ctx, []*domain.ForecastPoint{
		{DiseaseType: domain.DiseaseOncho, Month: "2025-02", IsForecast: true, ForecastedTotalTests: &total},
		{DiseaseType: domain.DiseaseOncho, Month: "2025-01", IsForecast: false, TotalTests: &total},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	points, err := repo.GetForecast(ctx, domain.DiseaseOncho)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2025-01", points[0].Month)

	_, err = repo.GetForecast(ctx, domain.DiseaseLF)
	assert.ErrorIs(t, err, domain.ErrNoForecastData)
}

func TestSessionRepositoryExpiry(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()

	users := NewUserRepository(pool, testLogger())
	u := &domain.User{Name: "Ama", Email: "ama@example.org"}
	require.NoError(t, users.Create(ctx, u))

	sessions := NewSessionRepository(pool, testLogger())
	sess, err := sessions.Create(ctx, u.ID, -time.Minute)
	require.NoError(t, err)

	_, err = sessions.GetByToken(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
