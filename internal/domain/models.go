package domain

import "time"

// TestRecord is one diagnostic encounter: a single person tested against the
// four disease markers. Outcome fields are nil when the marker was not tested.
type TestRecord struct {
	ID            string     `json:"id"`
	ParticipantID *string    `json:"participantId,omitempty"`
	Name          *string    `json:"name,omitempty"`
	Gender        *string    `json:"gender,omitempty"`
	Age           *int       `json:"age,omitempty"`
	Location      *string    `json:"location,omitempty"`
	Date          time.Time  `json:"date"`
	UserID        string     `json:"userId"`
	Oncho         *Outcome   `json:"oncho"`
	Schistosomiasis *Outcome `json:"schistosomiasis"`
	LF            *Outcome   `json:"lf"`
	Helminths     *Outcome   `json:"helminths"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Outcome returns the outcome field for the given disease key.
func (r *TestRecord) Outcome(d DiseaseType) *Outcome {
	switch d {
	case DiseaseOncho:
		return r.Oncho
	case DiseaseSchistosomiasis:
		return r.Schistosomiasis
	case DiseaseLF:
		return r.LF
	case DiseaseHelminths:
		return r.Helminths
	default:
		return nil
	}
}

// TestRecordFilter narrows List queries. Zero values mean "no constraint".
type TestRecordFilter struct {
	UserID string
	Limit  int
	Offset int
}

// TestRecordUpdate is a partial update: nil fields are left untouched.
type TestRecordUpdate struct {
	ParticipantID *string
	Name          *string
	Gender        *string
	Age           *int
	Location      *string
	Date          *time.Time
	Oncho         *Outcome
	Schistosomiasis *Outcome
	LF            *Outcome
	Helminths     *Outcome
}

// DiseaseStat is the per-disease slice of a snapshot.
type DiseaseStat struct {
	Positive int64  `json:"positive"`
	Total    int64  `json:"total"`
	Rate     string `json:"rate"`
}

// CoInfectionStats holds the six pairwise positive-positive counts and the
// four-way all-positive count.
type CoInfectionStats struct {
	OnchoSchisto     int64 `json:"onchoSchisto"`
	OnchoLF          int64 `json:"onchoLf"`
	OnchoHelminths   int64 `json:"onchoHelminths"`
	SchistoLF        int64 `json:"schistoLf"`
	SchistoHelminths int64 `json:"schistoHelminths"`
	LFHelminths      int64 `json:"lfHelminths"`
	AllFour          int64 `json:"allFour"`
}

// RecentActivity summarizes the trailing 30 days of testing.
type RecentActivity struct {
	Tests     int64  `json:"tests"`
	Positives int64  `json:"positives"`
	Rate      string `json:"rate"`
}

// DiseaseStatsSnapshot is the derived dashboard aggregate. It is recomputed
// per request and never persisted.
type DiseaseStatsSnapshot struct {
	TotalTests            int64                       `json:"totalTests"`
	AnyDiseaseCount       int64                       `json:"anyDiseaseCount"`
	AnyDiseaseProbability string                      `json:"anyDiseaseProbability"`
	Diseases              map[DiseaseType]DiseaseStat `json:"diseases"`
	CoInfections          CoInfectionStats            `json:"coInfections"`
	Recent                RecentActivity              `json:"recent"`
}

// ForecastPoint is one (disease, month) row of the forecast table: either an
// observed historical month or a forecasted one, flagged by IsForecast. The
// two field groups are mutually exclusive in practice but not enforced by the
// schema.
type ForecastPoint struct {
	ID          string      `json:"id"`
	DiseaseType DiseaseType `json:"diseaseType"`
	Month       string      `json:"month"`
	IsForecast  bool        `json:"isForecast"`

	TotalTests    *int `json:"totalTests,omitempty"`
	PositiveCases *int `json:"positiveCases,omitempty"`
	InfectionRate *int `json:"infectionRate,omitempty"`

	ForecastedTotalTests    *int `json:"forecastedTotalTests,omitempty"`
	ForecastedPositiveCases *int `json:"forecastedPositiveCases,omitempty"`
	ForecastedInfectionRate *int `json:"forecastedInfectionRate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is an account that submits test records. Deletion is a soft ban so the
// foreign reference from test rows stays intact.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      *string   `json:"role,omitempty"`
	Banned    bool      `json:"banned"`
	BanReason *string   `json:"banReason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserUpdate is a partial user update: nil fields are left untouched.
type UserUpdate struct {
	Name  *string
	Email *string
	Role  *string
}

// Session is an opaque bearer-token session for the mobile API.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
