package domain

import (
	"context"
	"time"
)

// StatsReader produces one DiseaseStatsSnapshot from the current contents of
// the test record store. Pure read, no side effects; failures wrap
// ErrAggregationFailed.
type StatsReader interface {
	ComputeDiseaseStats(ctx context.Context) (*DiseaseStatsSnapshot, error)
}

// ForecastStore stores and retrieves precomputed per-disease monthly series.
// The forecasting computation itself is an external job.
type ForecastStore interface {
	// GetForecast returns all rows for the disease ordered ascending by month.
	// Zero rows is ErrNoForecastData, not an empty-list success.
	GetForecast(ctx context.Context, disease DiseaseType) ([]*ForecastPoint, error)

	// GetForecastWindowed filters to rows whose month is >= the current month
	// minus the given number of months, compared as "YYYY-MM" text.
	GetForecastWindowed(ctx context.Context, disease DiseaseType, months int) ([]*ForecastPoint, error)

	// SaveForecast bulk-inserts the points, assigning a fresh id to each.
	// No dedup or upsert; callers clear stale rows first.
	SaveForecast(ctx context.Context, points []*ForecastPoint) (int, error)

	// ClearOldForecasts deletes forecast rows (is_forecast = true) for the
	// disease older than the keep-months cutoff. Historical rows are never
	// deleted regardless of age.
	ClearOldForecasts(ctx context.Context, disease DiseaseType, keepMonths int) error
}

// TestRecordStore persists diagnostic test records.
type TestRecordStore interface {
	Create(ctx context.Context, rec *TestRecord) error
	GetByID(ctx context.Context, id string) (*TestRecord, error)
	List(ctx context.Context, filter TestRecordFilter) ([]*TestRecord, error)
	Update(ctx context.Context, id string, upd TestRecordUpdate) (*TestRecord, error)
	Delete(ctx context.Context, id string) error
	BulkInsert(ctx context.Context, recs []*TestRecord) (int, error)
}

// UserStore manages accounts. SoftDelete bans the user instead of removing the
// row so test records keep their owning reference.
type UserStore interface {
	List(ctx context.Context) ([]*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	SoftDelete(ctx context.Context, id string) error
}

// SessionStore issues and validates opaque bearer-token sessions.
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
}
