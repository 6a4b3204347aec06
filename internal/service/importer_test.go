package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/water-ml-server/internal/domain"
)

// fakeRecordStore captures bulk inserts for inspection.
type fakeRecordStore struct {
	domain.TestRecordStore
	inserted []*domain.TestRecord
	err      error
}

func (f *fakeRecordStore) BulkInsert(ctx context.Context, recs []*domain.TestRecord) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, recs...)
	return len(recs), nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestImportBasicCSV(t *testing.T) {
	store := &fakeRecordStore{}
	im := NewImporter(store, testLogger())

	csv := `participantId,name,gender,age,location,date,oncho,schistosomiasis,lf,helminths
P-001,Ama,female,30,Kumasi,2025-03-10,2,1,,
P-002,Kofi,male,41,Accra,2025-03-11,negative,positive,2,1
`
	result, err := im.Import(context.Background(), strings.NewReader(csv), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, store.inserted, 2)

	first := store.inserted[0]
	assert.Equal(t, "user-1", first.UserID)
	assert.Equal(t, "P-001", *first.ParticipantID)
	assert.Equal(t, 30, *first.Age)
	assert.Equal(t, domain.OutcomePositive, *first.Oncho)
	assert.Equal(t, domain.OutcomeNegative, *first.Schistosomiasis)
	assert.Nil(t, first.LF)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), first.Date)

	second := store.inserted[1]
	assert.Equal(t, domain.OutcomeNegative, *second.Oncho)
	assert.Equal(t, domain.OutcomePositive, *second.Schistosomiasis)
	assert.Equal(t, domain.OutcomePositive, *second.LF)
	assert.Equal(t, domain.OutcomeNegative, *second.Helminths)
}

func TestImportDateFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2025-03-10", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"10/03/2025", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"2025/03/10", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"10 Mar 2025", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"2025-03-10T14:30:00Z", time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, ok := parseDate(tt.raw)
		require.True(t, ok, "failed to parse %q", tt.raw)
		assert.True(t, tt.want.Equal(got), "parsed %q as %v", tt.raw, got)
	}
}

func TestImportUnparseableDateFallsBackToNow(t *testing.T) {
	store := &fakeRecordStore{}
	im := NewImporter(store, testLogger())
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	im.now = func() time.Time { return fixed }

	csv := "participantId,date,oncho\nP-001,not-a-date,2\n"
	result, err := im.Import(context.Background(), strings.NewReader(csv), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, fixed, store.inserted[0].Date)
}

func TestImportHeaderAliases(t *testing.T) {
	store := &fakeRecordStore{}
	im := NewImporter(store, testLogger())

	csv := "Patient ID,Sex,Village,Test Date,Onchocerciasis,Schisto\nP-9,male,Tamale,2025-01-05,2,1\n"
	result, err := im.Import(context.Background(), strings.NewReader(csv), "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Inserted)

	rec := store.inserted[0]
	assert.Equal(t, "P-9", *rec.ParticipantID)
	assert.Equal(t, "male", *rec.Gender)
	assert.Equal(t, "Tamale", *rec.Location)
	assert.Equal(t, domain.OutcomePositive, *rec.Oncho)
	assert.Equal(t, domain.OutcomeNegative, *rec.Schistosomiasis)
}

func TestImportSkipsBadRows(t *testing.T) {
	store := &fakeRecordStore{}
	im := NewImporter(store, testLogger())

	csv := "participantId,age,oncho\nP-001,notanumber,2\nP-002,25,1\n"
	result, err := im.Import(context.Background(), strings.NewReader(csv), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "line 2")
}

func TestImportBulkInsertFailure(t *testing.T) {
	store := &fakeRecordStore{err: assert.AnError}
	im := NewImporter(store, testLogger())

	csv := "participantId,oncho\nP-001,2\n"
	_, err := im.Import(context.Background(), strings.NewReader(csv), "user-1")
	assert.Error(t, err)
}
