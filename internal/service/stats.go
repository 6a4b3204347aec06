package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

const statsSnapshotKey = "water_ml:stats:snapshot"

// StatsService serves dashboard snapshots, optionally fronted by a shared
// Redis cache so concurrent dashboard loads don't each hit the aggregate
// queries.
type StatsService struct {
	reader domain.StatsReader
	cache  *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// cachedSnapshot wraps a snapshot with cache metadata.
type cachedSnapshot struct {
	Data      *domain.DiseaseStatsSnapshot `json:"data"`
	CachedAt  time.Time                    `json:"cached_at"`
	ExpiresAt time.Time                    `json:"expires_at"`
}

// NewStatsService creates an uncached stats service.
func NewStatsService(reader domain.StatsReader, logger *logrus.Logger) *StatsService {
	return &StatsService{
		reader: reader,
		log:    logger,
	}
}

// NewCachedStatsService creates a stats service backed by a Redis cache.
func NewCachedStatsService(reader domain.StatsReader, redisURL string, ttl time.Duration, logger *logrus.Logger) (*StatsService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &StatsService{
		reader: reader,
		cache:  client,
		ttl:    ttl,
		log:    logger,
	}, nil
}

// Snapshot returns the current disease statistics, from cache when fresh.
// Cache failures degrade to a direct computation, never to an error.
func (s *StatsService) Snapshot(ctx context.Context) (*domain.DiseaseStatsSnapshot, error) {
	if snap, ok := s.cachedGet(ctx); ok {
		return snap, nil
	}

	snap, err := s.reader.ComputeDiseaseStats(ctx)
	if err != nil {
		return nil, err
	}

	s.cachedSet(ctx, snap)
	return snap, nil
}

// Invalidate drops the cached snapshot. Called after test record mutations.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsSnapshotKey).Err(); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate stats cache")
	}
}

// Close releases the Redis connection if one is held.
func (s *StatsService) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

func (s *StatsService) cachedGet(ctx context.Context) (*domain.DiseaseStatsSnapshot, bool) {
	if s.cache == nil {
		return nil, false
	}

	val, err := s.cache.Get(ctx, statsSnapshotKey).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.log.WithError(err).Warn("Stats cache read failed")
		return nil, false
	}

	var cached cachedSnapshot
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Corrupted entry, drop it
		s.cache.Del(ctx, statsSnapshotKey)
		return nil, false
	}
	if time.Now().After(cached.ExpiresAt) {
		s.cache.Del(ctx, statsSnapshotKey)
		return nil, false
	}
	return cached.Data, true
}

func (s *StatsService) cachedSet(ctx context.Context, snap *domain.DiseaseStatsSnapshot) {
	if s.cache == nil {
		return
	}

	cached := cachedSnapshot{
		Data:      snap,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	data, err := json.Marshal(cached)
	if err != nil {
		s.log.WithError(err).Warn("Failed to marshal stats snapshot for cache")
		return
	}
	if err := s.cache.Set(ctx, statsSnapshotKey, data, s.ttl).Err(); err != nil {
		s.log.WithError(err).Warn("Stats cache write failed")
	}
}
