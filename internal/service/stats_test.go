package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/water-ml-server/internal/domain"
)

type fakeStatsReader struct {
	calls int
	snap  *domain.DiseaseStatsSnapshot
	err   error
}

func (f *fakeStatsReader) ComputeDiseaseStats(ctx context.Context) (*domain.DiseaseStatsSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func TestStatsServiceUncachedPassThrough(t *testing.T) {
	reader := &fakeStatsReader{snap: &domain.DiseaseStatsSnapshot{TotalTests: 7}}
	svc := NewStatsService(reader, testLogger())
	ctx := context.Background()

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.TotalTests)

	// without a cache every call recomputes
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.calls)

	// no-op without a cache
	svc.Invalidate(ctx)
	assert.NoError(t, svc.Close())
}

func TestStatsServicePropagatesAggregationFailure(t *testing.T) {
	reader := &fakeStatsReader{err: fmt.Errorf("total tests: %w", domain.ErrAggregationFailed)}
	svc := NewStatsService(reader, testLogger())

	_, err := svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrAggregationFailed)
}
