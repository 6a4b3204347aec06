package litestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

const testColumns = `id, participant_id, name, gender, age, location, date, user_id,
	oncho, schistosomiasis, lf, helminths, created_at, updated_at`

// Create inserts a new test record, assigning id and timestamps if missing.
func (s *Store) Create(ctx context.Context, rec *domain.TestRecord) error {
	s.prepareRecord(rec)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO water_ml_tests (`+testColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ParticipantID, rec.Name, rec.Gender, rec.Age, rec.Location,
		rec.Date, rec.UserID,
		outcomeArg(rec.Oncho), outcomeArg(rec.Schistosomiasis),
		outcomeArg(rec.LF), outcomeArg(rec.Helminths),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"record_id": rec.ID,
			"error":     err,
		}).Error("Failed to create test record")
		return fmt.Errorf("creating test record: %w", err)
	}
	return nil
}

// GetByID retrieves a test record by id.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.TestRecord, error) {
	rec, err := scanTestRecord(s.db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM water_ml_tests WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("test record %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting test record: %w", err)
	}
	return rec, nil
}

// List returns records newest-first with optional user filter and pagination.
func (s *Store) List(ctx context.Context, filter domain.TestRecordFilter) ([]*domain.TestRecord, error) {
	query := `SELECT ` + testColumns + ` FROM water_ml_tests`
	var args []interface{}
	if filter.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing test records: %w", err)
	}
	defer rows.Close()

	var recs []*domain.TestRecord
	for rows.Next() {
		rec, err := scanTestRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning test record row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating test record rows: %w", err)
	}
	return recs, nil
}

// Update applies a partial update; only non-nil fields change.
func (s *Store) Update(ctx context.Context, id string, upd domain.TestRecordUpdate) (*domain.TestRecord, error) {
	sets := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if upd.ParticipantID != nil {
		add("participant_id", upd.ParticipantID)
	}
	if upd.Name != nil {
		add("name", upd.Name)
	}
	if upd.Gender != nil {
		add("gender", upd.Gender)
	}
	if upd.Age != nil {
		add("age", upd.Age)
	}
	if upd.Location != nil {
		add("location", upd.Location)
	}
	if upd.Date != nil {
		add("date", upd.Date)
	}
	if upd.Oncho != nil {
		add("oncho", outcomeArg(upd.Oncho))
	}
	if upd.Schistosomiasis != nil {
		add("schistosomiasis", outcomeArg(upd.Schistosomiasis))
	}
	if upd.LF != nil {
		add("lf", outcomeArg(upd.LF))
	}
	if upd.Helminths != nil {
		add("helminths", outcomeArg(upd.Helminths))
	}
	add("updated_at", s.now())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE water_ml_tests SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"record_id": id,
			"error":     err,
		}).Error("Failed to update test record")
		return nil, fmt.Errorf("updating test record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("test record %s: %w", id, domain.ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a test record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM water_ml_tests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting test record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("test record %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// BulkInsert inserts records in one transaction; a failed batch is reported
// whole.
func (s *Store) BulkInsert(ctx context.Context, recs []*domain.TestRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning bulk insert: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		s.prepareRecord(rec)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO water_ml_tests (`+testColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.ParticipantID, rec.Name, rec.Gender, rec.Age, rec.Location,
			rec.Date, rec.UserID,
			outcomeArg(rec.Oncho), outcomeArg(rec.Schistosomiasis),
			outcomeArg(rec.LF), outcomeArg(rec.Helminths),
			rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("bulk inserting test records: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing bulk insert: %w", err)
	}

	s.log.WithField("records", len(recs)).Info("Test records bulk inserted")
	return len(recs), nil
}

func (s *Store) prepareRecord(rec *domain.TestRecord) {
	now := s.now()
	if rec.ID == "" {
		rec.ID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	if rec.Date.IsZero() {
		rec.Date = now
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
}

func outcomeArg(o *domain.Outcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

func scanTestRecord(row scanner) (*domain.TestRecord, error) {
	var (
		rec                           domain.TestRecord
		oncho, schisto, lf, helminths *string
	)
	err := row.Scan(
		&rec.ID, &rec.ParticipantID, &rec.Name, &rec.Gender, &rec.Age, &rec.Location,
		&rec.Date, &rec.UserID,
		&oncho, &schisto, &lf, &helminths,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Oncho = outcomeFromStr(oncho)
	rec.Schistosomiasis = outcomeFromStr(schisto)
	rec.LF = outcomeFromStr(lf)
	rec.Helminths = outcomeFromStr(helminths)
	return &rec, nil
}

func outcomeFromStr(str *string) *domain.Outcome {
	if str == nil {
		return nil
	}
	o := domain.Outcome(*str)
	return &o
}
