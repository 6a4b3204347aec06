package litestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/water-ml-server/internal/domain"
)

func strp(v string) *string { return &v }

func TestCreateAndGetTestRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	age := 34
	rec := &domain.TestRecord{
		ParticipantID:   strp("P-001"),
		Name:            strp("Ama"),
		Gender:          strp("female"),
		Age:             &age,
		Location:        strp("Kumasi"),
		UserID:          "user-1",
		Oncho:           outcome(domain.OutcomePositive),
		Schistosomiasis: outcome(domain.OutcomeNegative),
	}
	require.NoError(t, store.Create(ctx, rec))
	require.NotEmpty(t, rec.ID)
	assert.NotContains(t, rec.ID, "-")

	got, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "P-001", *got.ParticipantID)
	assert.Equal(t, 34, *got.Age)
	assert.Equal(t, domain.OutcomePositive, *got.Oncho)
	assert.Equal(t, domain.OutcomeNegative, *got.Schistosomiasis)
	assert.Nil(t, got.LF)
	assert.Nil(t, got.Helminths)
}

func TestGetTestRecordNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTestRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		rec := testRecord(base.Add(time.Duration(i)*time.Minute), outcome(domain.OutcomeNegative), nil, nil, nil)
		if i%2 == 0 {
			rec.UserID = "user-even"
		}
		require.NoError(t, store.Create(ctx, rec))
	}

	all, err := store.List(ctx, domain.TestRecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	// newest first
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i-1].CreatedAt.Before(all[i].CreatedAt))
	}

	filtered, err := store.List(ctx, domain.TestRecordFilter{UserID: "user-even"})
	require.NoError(t, err)
	assert.Len(t, filtered, 3)

	page, err := store.List(ctx, domain.TestRecordFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[1].ID, page[0].ID)
	assert.Equal(t, all[2].ID, page[1].ID)
}

func TestUpdateTestRecordPartial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord(time.Now().Add(-time.Hour), outcome(domain.OutcomeNegative), nil, nil, nil)
	rec.Location = strp("Accra")
	require.NoError(t, store.Create(ctx, rec))

	updated, err := store.Update(ctx, rec.ID, domain.TestRecordUpdate{
		Oncho: outcome(domain.OutcomePositive),
	})
	require.NoError(t, err)

	// only the given field changed
	assert.Equal(t, domain.OutcomePositive, *updated.Oncho)
	assert.Equal(t, "Accra", *updated.Location)
	assert.Nil(t, updated.Schistosomiasis)
	assert.True(t, updated.UpdatedAt.After(rec.CreatedAt))
}

func TestUpdateTestRecordNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Update(context.Background(), "missing", domain.TestRecordUpdate{
		Name: strp("nobody"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteTestRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord(time.Now(), outcome(domain.OutcomePositive), nil, nil, nil)
	require.NoError(t, store.Create(ctx, rec))

	require.NoError(t, store.Delete(ctx, rec.ID))
	_, err := store.GetByID(ctx, rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, rec.ID), domain.ErrNotFound)
}

func TestBulkInsertTestRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	recs := []*domain.TestRecord{
		testRecord(now, outcome(domain.OutcomePositive), nil, nil, nil),
		testRecord(now, nil, outcome(domain.OutcomeNegative), nil, nil),
		testRecord(now, nil, nil, outcome(domain.OutcomePositive), nil),
	}
	n, err := store.BulkInsert(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := store.List(ctx, domain.TestRecordFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := store.BulkInsert(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty)
}
