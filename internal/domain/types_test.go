package domain

import (
	"testing"
	"time"
)

func TestNormalizeOutcome(t *testing.T) {
	pos := OutcomePositive
	neg := OutcomeNegative

	tests := []struct {
		name  string
		input interface{}
		want  *Outcome
	}{
		{"numeric code 2", 2, &pos},
		{"numeric code 1", 1, &neg},
		{"float code 2", float64(2), &pos},
		{"float code 1", float64(1), &neg},
		{"string code 2", "2", &pos},
		{"string code 1", "1", &neg},
		{"canonical positive", "positive", &pos},
		{"canonical negative", "negative", &neg},
		{"uppercase", "POSITIVE", &pos},
		{"padded", " negative ", &neg},
		{"nil", nil, nil},
		{"unknown number", 3, nil},
		{"zero", 0, nil},
		{"fractional", 1.5, nil},
		{"unknown string", "inconclusive", nil},
		{"empty string", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeOutcome(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("NormalizeOutcome(%v) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("NormalizeOutcome(%v) = %q, want %q", tt.input, *got, *tt.want)
			}
		})
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		name     string
		positive int64
		total    int64
		want     string
	}{
		{"zero denominator", 5, 0, "0"},
		{"zero over zero", 0, 0, "0"},
		{"thirty percent", 3, 10, "30.0"},
		{"one third", 1, 3, "33.3"},
		{"two thirds rounds up", 2, 3, "66.7"},
		{"full", 10, 10, "100.0"},
		{"none", 0, 7, "0.0"},
		{"one of seven", 1, 7, "14.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRate(tt.positive, tt.total); got != tt.want {
				t.Errorf("FormatRate(%d, %d) = %q, want %q", tt.positive, tt.total, got, tt.want)
			}
		})
	}
}

func TestMonthHelpers(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	if got := MonthString(now); got != "2025-03" {
		t.Errorf("MonthString = %q, want 2025-03", got)
	}
	if got := CutoffMonth(now, 6); got != "2024-09" {
		t.Errorf("CutoffMonth(6) = %q, want 2024-09", got)
	}
	if got := CutoffMonth(now, 0); got != "2025-03" {
		t.Errorf("CutoffMonth(0) = %q, want 2025-03", got)
	}

	// Month keys must sort lexicographically in chronological order.
	if !("2024-09" < "2024-10" && "2024-12" < "2025-01") {
		t.Error("month key ordering broken")
	}
}

func TestDiseaseTypeIsValid(t *testing.T) {
	for _, d := range AllDiseases() {
		if !d.IsValid() {
			t.Errorf("expected %q to be valid", d)
		}
	}
	for _, d := range []DiseaseType{"", "malaria", "ONCHO", "oncho "} {
		if d.IsValid() {
			t.Errorf("expected %q to be invalid", d)
		}
	}
}
