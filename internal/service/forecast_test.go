package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/water-ml-server/internal/domain"
)

// fakeForecastStore counts calls so cache behavior is observable.
type fakeForecastStore struct {
	calls  int
	saves  int
	points map[domain.DiseaseType][]*domain.ForecastPoint
}

func newFakeForecastStore() *fakeForecastStore {
	return &fakeForecastStore{points: map[domain.DiseaseType][]*domain.ForecastPoint{}}
}

func (f *fakeForecastStore) GetForecast(ctx context.Context, disease domain.DiseaseType) ([]*domain.ForecastPoint, error) {
	f.calls++
	pts := f.points[disease]
	if len(pts) == 0 {
		return nil, fmt.Errorf("disease %q: %w", disease, domain.ErrNoForecastData)
	}
	return pts, nil
}

func (f *fakeForecastStore) GetForecastWindowed(ctx context.Context, disease domain.DiseaseType, months int) ([]*domain.ForecastPoint, error) {
	return f.GetForecast(ctx, disease)
}

func (f *fakeForecastStore) SaveForecast(ctx context.Context, points []*domain.ForecastPoint) (int, error) {
	f.saves++
	for _, p := range points {
		f.points[p.DiseaseType] = append(f.points[p.DiseaseType], p)
	}
	return len(points), nil
}

func (f *fakeForecastStore) ClearOldForecasts(ctx context.Context, disease domain.DiseaseType, keepMonths int) error {
	delete(f.points, disease)
	return nil
}

func point(disease domain.DiseaseType, month string) *domain.ForecastPoint {
	return &domain.ForecastPoint{DiseaseType: disease, Month: month}
}

func TestForecastServiceCachesSeries(t *testing.T) {
	store := newFakeForecastStore()
	store.points[domain.DiseaseOncho] = []*domain.ForecastPoint{point(domain.DiseaseOncho, "2025-01")}

	svc := NewForecastService(store, 8, time.Minute, testLogger())
	ctx := context.Background()

	first, err := svc.Series(ctx, domain.DiseaseOncho)
	require.NoError(t, err)
	second, err := svc.Series(ctx, domain.DiseaseOncho)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls, "second read must come from cache")
}

func TestForecastServiceDoesNotCacheErrors(t *testing.T) {
	store := newFakeForecastStore()
	svc := NewForecastService(store, 8, time.Minute, testLogger())
	ctx := context.Background()

	_, err := svc.Series(ctx, domain.DiseaseLF)
	assert.ErrorIs(t, err, domain.ErrNoForecastData)
	_, err = svc.Series(ctx, domain.DiseaseLF)
	assert.ErrorIs(t, err, domain.ErrNoForecastData)
	assert.Equal(t, 2, store.calls)
}

func TestForecastServiceSaveInvalidates(t *testing.T) {
	store := newFakeForecastStore()
	store.points[domain.DiseaseOncho] = []*domain.ForecastPoint{point(domain.DiseaseOncho, "2025-01")}

	svc := NewForecastService(store, 8, time.Minute, testLogger())
	ctx := context.Background()

	_, err := svc.Series(ctx, domain.DiseaseOncho)
	require.NoError(t, err)

	_, err = svc.Save(ctx, []*domain.ForecastPoint{point(domain.DiseaseOncho, "2025-02")})
	require.NoError(t, err)

	series, err := svc.Series(ctx, domain.DiseaseOncho)
	require.NoError(t, err)
	assert.Len(t, series, 2, "save must invalidate the cached series")
	assert.Equal(t, 2, store.calls)
}

func TestForecastServiceTrimInvalidates(t *testing.T) {
	store := newFakeForecastStore()
	store.points[domain.DiseaseHelminths] = []*domain.ForecastPoint{point(domain.DiseaseHelminths, "2024-01")}

	svc := NewForecastService(store, 8, time.Minute, testLogger())
	ctx := context.Background()

	_, err := svc.Series(ctx, domain.DiseaseHelminths)
	require.NoError(t, err)

	require.NoError(t, svc.TrimOld(ctx, domain.DiseaseHelminths, 12))

	_, err = svc.Series(ctx, domain.DiseaseHelminths)
	assert.ErrorIs(t, err, domain.ErrNoForecastData)
}
