package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

// ForecastService fronts the forecast store with an in-memory LRU of resolved
// series. Forecast rows change only when a training job writes them, so a
// short TTL keeps reads hot without a distributed cache.
type ForecastService struct {
	store domain.ForecastStore
	cache *expirable.LRU[string, []*domain.ForecastPoint]
	log   *logrus.Logger
}

// NewForecastService creates a forecast service with an expiring LRU cache.
func NewForecastService(store domain.ForecastStore, cacheSize int, cacheTTL time.Duration, logger *logrus.Logger) *ForecastService {
	return &ForecastService{
		store: store,
		cache: expirable.NewLRU[string, []*domain.ForecastPoint](cacheSize, nil, cacheTTL),
		log:   logger,
	}
}

// Series returns the full forecast series for a disease.
func (f *ForecastService) Series(ctx context.Context, disease domain.DiseaseType) ([]*domain.ForecastPoint, error) {
	return f.fetch(ctx, forecastKey(disease, 0), func() ([]*domain.ForecastPoint, error) {
		return f.store.GetForecast(ctx, disease)
	})
}

// WindowedSeries returns the forecast series limited to the trailing window.
func (f *ForecastService) WindowedSeries(ctx context.Context, disease domain.DiseaseType, months int) ([]*domain.ForecastPoint, error) {
	return f.fetch(ctx, forecastKey(disease, months), func() ([]*domain.ForecastPoint, error) {
		return f.store.GetForecastWindowed(ctx, disease, months)
	})
}

// Save writes new forecast points and invalidates affected cache entries.
func (f *ForecastService) Save(ctx context.Context, points []*domain.ForecastPoint) (int, error) {
	n, err := f.store.SaveForecast(ctx, points)
	if err != nil {
		return 0, err
	}

	seen := map[domain.DiseaseType]bool{}
	for _, p := range points {
		if !seen[p.DiseaseType] {
			seen[p.DiseaseType] = true
			f.invalidate(p.DiseaseType)
		}
	}
	return n, nil
}

// TrimOld deletes stale forecast rows for a disease and invalidates its cache.
func (f *ForecastService) TrimOld(ctx context.Context, disease domain.DiseaseType, keepMonths int) error {
	if err := f.store.ClearOldForecasts(ctx, disease, keepMonths); err != nil {
		return err
	}
	f.invalidate(disease)
	return nil
}

func (f *ForecastService) fetch(ctx context.Context, key string, load func() ([]*domain.ForecastPoint, error)) ([]*domain.ForecastPoint, error) {
	if points, ok := f.cache.Get(key); ok {
		return points, nil
	}

	points, err := load()
	if err != nil {
		return nil, err
	}
	f.cache.Add(key, points)
	return points, nil
}

// invalidate drops every cached window for the disease. Window sizes are
// small integers, so a bounded sweep is simpler than tracking live keys.
func (f *ForecastService) invalidate(disease domain.DiseaseType) {
	for _, key := range f.cache.Keys() {
		if len(key) >= len(disease) && key[:len(disease)] == string(disease) {
			f.cache.Remove(key)
		}
	}
	f.log.WithField("disease", disease).Debug("Forecast cache invalidated")
}

func forecastKey(disease domain.DiseaseType, months int) string {
	return fmt.Sprintf("%s:%d", disease, months)
}
