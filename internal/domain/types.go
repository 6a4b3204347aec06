// Package domain contains core business entities and types for water-borne
// disease surveillance: diagnostic test records, aggregate statistics, and
// per-disease monthly forecast series.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DiseaseType identifies one of the four tracked water-borne disease markers.
type DiseaseType string

const (
	DiseaseOncho           DiseaseType = "oncho"
	DiseaseSchistosomiasis DiseaseType = "schistosomiasis"
	DiseaseLF              DiseaseType = "lf"
	DiseaseHelminths       DiseaseType = "helminths"
)

// AllDiseases lists the tracked disease keys in canonical order.
func AllDiseases() []DiseaseType {
	return []DiseaseType{DiseaseOncho, DiseaseSchistosomiasis, DiseaseLF, DiseaseHelminths}
}

// IsValid reports whether the disease key is one of the four recognized values.
// Callers must reject anything else before touching the forecast store.
func (d DiseaseType) IsValid() bool {
	switch d {
	case DiseaseOncho, DiseaseSchistosomiasis, DiseaseLF, DiseaseHelminths:
		return true
	default:
		return false
	}
}

// Outcome is a canonical test outcome for a single disease marker.
// A nil *Outcome means the marker was not tested (unset).
type Outcome string

const (
	OutcomePositive Outcome = "positive"
	OutcomeNegative Outcome = "negative"
)

// IsValid reports whether the outcome carries one of the two canonical values.
func (o Outcome) IsValid() bool {
	return o == OutcomePositive || o == OutcomeNegative
}

// NormalizeOutcome maps raw ingestion values to a canonical outcome.
// Accepted inputs are the numeric codes 2 (positive) and 1 (negative), their
// string forms, and the canonical strings themselves (case-insensitive).
// Everything else, including nil, normalizes to unset.
func NormalizeOutcome(v interface{}) *Outcome {
	if v == nil {
		return nil
	}

	var s string
	switch t := v.(type) {
	case string:
		s = strings.ToLower(strings.TrimSpace(t))
	case int:
		s = fmt.Sprintf("%d", t)
	case int64:
		s = fmt.Sprintf("%d", t)
	case float64:
		// JSON numbers decode as float64; only exact 1 and 2 are meaningful.
		if t == math.Trunc(t) {
			s = fmt.Sprintf("%d", int64(t))
		}
	case Outcome:
		s = strings.ToLower(string(t))
	}

	var out Outcome
	switch s {
	case "2", "positive":
		out = OutcomePositive
	case "1", "negative":
		out = OutcomeNegative
	default:
		return nil
	}
	return &out
}

// FormatRate renders positive/total as a percentage string fixed to one
// decimal place using the shared rounding rule: multiply by 1000,
// integer-round, divide by 10. A zero denominator yields "0".
func FormatRate(positive, total int64) string {
	if total == 0 {
		return "0"
	}
	tenths := int64(math.Round(float64(positive) * 1000.0 / float64(total)))
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}

// MonthString formats a time as the "YYYY-MM" month key used by the forecast
// table. The format sorts lexicographically in chronological order, which the
// windowing and retention queries rely on.
func MonthString(t time.Time) string {
	return t.Format("2006-01")
}

// CutoffMonth returns the month key `months` calendar months before now.
func CutoffMonth(now time.Time, months int) string {
	return MonthString(now.AddDate(0, -months, 0))
}
