package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

// dateLayouts are tried in order when parsing the date column. Day-first
// beats month-first for ambiguous slash dates, matching field data entry.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	time.RFC3339,
	"2 Jan 2006",
}

// ImportResult summarizes one CSV import run.
type ImportResult struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Importer parses uploaded CSV files into test records and bulk-inserts them.
type Importer struct {
	records domain.TestRecordStore
	log     *logrus.Logger
	now     func() time.Time
}

// NewImporter creates a CSV importer backed by the given record store.
func NewImporter(records domain.TestRecordStore, logger *logrus.Logger) *Importer {
	return &Importer{
		records: records,
		log:     logger,
		now:     time.Now,
	}
}

// Import reads CSV data and inserts one test record per data row. Rows that
// cannot be parsed are skipped and reported, not fatal; the insert itself is
// all-or-nothing.
func (im *Importer) Import(ctx context.Context, r io.Reader, userID string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := indexColumns(header)
	result := &ImportResult{}
	var recs []*domain.TestRecord

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		rec, err := im.parseRow(cols, row, userID)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		recs = append(recs, rec)
	}

	inserted, err := im.records.BulkInsert(ctx, recs)
	if err != nil {
		im.log.WithFields(logrus.Fields{
			"rows":  len(recs),
			"error": err,
		}).Error("CSV bulk insert failed")
		return nil, fmt.Errorf("importing CSV records: %w", err)
	}
	result.Inserted = inserted

	im.log.WithFields(logrus.Fields{
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
	}).Info("CSV import completed")
	return result, nil
}

// indexColumns maps canonical column names to their positions. Header
// matching is case-insensitive and tolerant of separators.
func indexColumns(header []string) map[string]int {
	aliases := map[string]string{
		"participantid": "participant_id",
		"participant":   "participant_id",
		"patientid":     "participant_id",
		"name":          "name",
		"patientname":   "name",
		"gender":        "gender",
		"sex":           "gender",
		"age":           "age",
		"location":      "location",
		"village":       "location",
		"site":          "location",
		"date":          "date",
		"testdate":      "date",
		"oncho":         "oncho",
		"onchocerciasis": "oncho",
		"schistosomiasis": "schistosomiasis",
		"schisto":        "schistosomiasis",
		"lf":             "lf",
		"lymphaticfilariasis": "lf",
		"helminths":           "helminths",
		"soilhelminths":       "helminths",
	}

	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(h)
		key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
		if canonical, ok := aliases[key]; ok {
			cols[canonical] = i
		}
	}
	return cols
}

func (im *Importer) parseRow(cols map[string]int, row []string, userID string) (*domain.TestRecord, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := &domain.TestRecord{UserID: userID}

	if v := field("participant_id"); v != "" {
		rec.ParticipantID = &v
	}
	if v := field("name"); v != "" {
		rec.Name = &v
	}
	if v := field("gender"); v != "" {
		rec.Gender = &v
	}
	if v := field("age"); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid age %q", v)
		}
		rec.Age = &age
	}
	if v := field("location"); v != "" {
		rec.Location = &v
	}

	// Unparseable or missing dates fall back to the import time rather than
	// losing the row.
	rec.Date = im.now()
	if v := field("date"); v != "" {
		if date, ok := parseDate(v); ok {
			rec.Date = date
		}
	}

	rec.Oncho = domain.NormalizeOutcome(field("oncho"))
	rec.Schistosomiasis = domain.NormalizeOutcome(field("schistosomiasis"))
	rec.LF = domain.NormalizeOutcome(field("lf"))
	rec.Helminths = domain.NormalizeOutcome(field("helminths"))

	return rec, nil
}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
