package litestore

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/water-ml-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewMemoryStore(logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func outcome(o domain.Outcome) *domain.Outcome {
	return &o
}

// testRecord builds a record with the given outcomes, created at the given
// time.
func testRecord(createdAt time.Time, oncho, schisto, lf, helminths *domain.Outcome) *domain.TestRecord {
	return &domain.TestRecord{
		UserID:          "user-1",
		Date:            createdAt,
		Oncho:           oncho,
		Schistosomiasis: schisto,
		LF:              lf,
		Helminths:       helminths,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestComputeDiseaseStatsEmptyTable(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.ComputeDiseaseStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), snap.TotalTests)
	assert.Equal(t, int64(0), snap.AnyDiseaseCount)
	assert.Equal(t, "0", snap.AnyDiseaseProbability)
	for _, d := range domain.AllDiseases() {
		stat := snap.Diseases[d]
		assert.Equal(t, int64(0), stat.Positive)
		assert.Equal(t, int64(0), stat.Total)
		assert.Equal(t, "0", stat.Rate)
	}
	assert.Equal(t, int64(0), snap.CoInfections.AllFour)
	assert.Equal(t, "0", snap.Recent.Rate)
}

func TestComputeDiseaseStatsSingleDisease(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	// 10 oncho results, 3 positive
	for i := 0; i < 10; i++ {
		o := outcome(domain.OutcomeNegative)
		if i < 3 {
			o = outcome(domain.OutcomePositive)
		}
		require.NoError(t, store.Create(ctx, testRecord(now, o, nil, nil, nil)))
	}

	snap, err := store.ComputeDiseaseStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(10), snap.TotalTests)
	assert.Equal(t, int64(3), snap.AnyDiseaseCount)
	assert.Equal(t, "30.0", snap.AnyDiseaseProbability)

	oncho := snap.Diseases[domain.DiseaseOncho]
	assert.Equal(t, int64(3), oncho.Positive)
	assert.Equal(t, int64(10), oncho.Total)
	assert.Equal(t, "30.0", oncho.Rate)

	// Untested markers contribute nothing
	schisto := snap.Diseases[domain.DiseaseSchistosomiasis]
	assert.Equal(t, int64(0), schisto.Total)
	assert.Equal(t, "0", schisto.Rate)
}

func TestComputeDiseaseStatsCoInfections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	pos := outcome(domain.OutcomePositive)
	neg := outcome(domain.OutcomeNegative)

	// oncho+schisto positive only
	require.NoError(t, store.Create(ctx, testRecord(now, pos, pos, neg, neg)))
	// all four positive
	require.NoError(t, store.Create(ctx, testRecord(now, pos, pos, pos, pos)))
	// all negative
	require.NoError(t, store.Create(ctx, testRecord(now, neg, neg, neg, neg)))

	snap, err := store.ComputeDiseaseStats(ctx)
	require.NoError(t, err)

	co := snap.CoInfections
	assert.Equal(t, int64(2), co.OnchoSchisto)
	assert.Equal(t, int64(1), co.OnchoLF)
	assert.Equal(t, int64(1), co.OnchoHelminths)
	assert.Equal(t, int64(1), co.SchistoLF)
	assert.Equal(t, int64(1), co.SchistoHelminths)
	assert.Equal(t, int64(1), co.LFHelminths)
	assert.Equal(t, int64(1), co.AllFour)

	// The all-four record also counts in every pairwise bucket, never twice
	assert.Equal(t, int64(2), snap.AnyDiseaseCount)
}

func TestComputeDiseaseStatsRecentWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	pos := outcome(domain.OutcomePositive)
	neg := outcome(domain.OutcomeNegative)

	require.NoError(t, store.Create(ctx, testRecord(now.AddDate(0, 0, -1), pos, nil, nil, nil)))
	require.NoError(t, store.Create(ctx, testRecord(now.AddDate(0, 0, -40), neg, nil, nil, nil)))

	snap, err := store.ComputeDiseaseStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), snap.TotalTests)
	assert.Equal(t, int64(1), snap.Recent.Tests)
	assert.Equal(t, int64(1), snap.Recent.Positives)
	assert.Equal(t, "100.0", snap.Recent.Rate)
}

func TestComputeDiseaseStatsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	pos := outcome(domain.OutcomePositive)
	require.NoError(t, store.Create(ctx, testRecord(now, pos, pos, nil, nil)))

	first, err := store.ComputeDiseaseStats(ctx)
	require.NoError(t, err)
	second, err := store.ComputeDiseaseStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
