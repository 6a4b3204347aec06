package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

const testColumns = `id, participant_id, name, gender, age, location, date, user_id,
	oncho, schistosomiasis, lf, helminths, created_at, updated_at`

// TestRecordRepository handles test record persistence.
type TestRecordRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewTestRecordRepository creates a new test record repository.
func NewTestRecordRepository(db *pgxpool.Pool, logger *logrus.Logger) *TestRecordRepository {
	return &TestRecordRepository{
		db:  db,
		log: logger,
	}
}

// NewRecordID returns a fresh dashless record id.
func NewRecordID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Create inserts a new test record. A missing id is assigned; missing
// timestamps default to now.
func (r *TestRecordRepository) Create(ctx context.Context, rec *domain.TestRecord) error {
	prepareRecord(rec, time.Now())

	_, err := r.db.Exec(ctx, `
		INSERT INTO water_ml_tests (`+testColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.ParticipantID, rec.Name, rec.Gender, rec.Age, rec.Location,
		rec.Date, rec.UserID,
		outcomeArg(rec.Oncho), outcomeArg(rec.Schistosomiasis),
		outcomeArg(rec.LF), outcomeArg(rec.Helminths),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"record_id": rec.ID,
			"user_id":   rec.UserID,
			"error":     err,
		}).Error("Failed to create test record")
		return fmt.Errorf("creating test record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"record_id": rec.ID,
		"user_id":   rec.UserID,
	}).Info("Test record created")
	return nil
}

// GetByID retrieves a test record by its id.
func (r *TestRecordRepository) GetByID(ctx context.Context, id string) (*domain.TestRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+testColumns+` FROM water_ml_tests WHERE id = $1`, id)

	rec, err := scanTestRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("test record %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"record_id": id,
			"error":     err,
		}).Error("Failed to get test record")
		return nil, fmt.Errorf("getting test record: %w", err)
	}
	return rec, nil
}

// List returns records newest-first, optionally filtered by submitting user
// and paginated.
func (r *TestRecordRepository) List(ctx context.Context, filter domain.TestRecordFilter) ([]*domain.TestRecord, error) {
	query := `SELECT ` + testColumns + ` FROM water_ml_tests`
	var args []interface{}
	if filter.UserID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.WithError(err).Error("Failed to list test records")
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

// Update applies a partial update: only non-nil fields change, everything else
// is left untouched. updated_at is always bumped.
func (r *TestRecordRepository) Update(ctx context.Context, id string, upd domain.TestRecordUpdate) (*domain.TestRecord, error) {
	sets := []string{}
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
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

	args = append(args, time.Now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf(
		`UPDATE water_ml_tests SET %s WHERE id = $1 RETURNING `+testColumns,
		strings.Join(sets, ", "),
	)

	rec, err := scanTestRecord(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("test record %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"record_id": id,
			"error":     err,
		}).Error("Failed to update test record")
		return nil, fmt.Errorf("updating test record: %w", err)
	}

	r.log.WithField("record_id", id).Info("Test record updated")
	return rec, nil
}

// Delete removes a test record.
func (r *TestRecordRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM water_ml_tests WHERE id = $1`, id)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"record_id": id,
			"error":     err,
		}).Error("Failed to delete test record")
		return fmt.Errorf("deleting test record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("test record %s: %w", id, domain.ErrNotFound)
	}

	r.log.WithField("record_id", id).Info("Test record deleted")
	return nil
}

// BulkInsert inserts the records in a single statement. Used by the CSV
// importer; a failed batch is reported whole.
func (r *TestRecordRepository) BulkInsert(ctx context.Context, recs []*domain.TestRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	now := time.Now()
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`INSERT INTO water_ml_tests (` + testColumns + `) VALUES `)
	for i, rec := range recs {
		prepareRecord(rec, now)
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 14
		sb.WriteString("(")
		for j := 1; j <= 14; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			rec.ID, rec.ParticipantID, rec.Name, rec.Gender, rec.Age, rec.Location,
			rec.Date, rec.UserID,
			outcomeArg(rec.Oncho), outcomeArg(rec.Schistosomiasis),
			outcomeArg(rec.LF), outcomeArg(rec.Helminths),
			rec.CreatedAt, rec.UpdatedAt,
		)
	}

	if _, err := r.db.Exec(ctx, sb.String(), args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"records": len(recs),
			"error":   err,
		}).Error("Failed to bulk insert test records")
		return 0, fmt.Errorf("bulk inserting test records: %w", err)
	}

	r.log.WithField("records", len(recs)).Info("Test records bulk inserted")
	return len(recs), nil
}

// prepareRecord fills in id and timestamps where missing.
func prepareRecord(rec *domain.TestRecord, now time.Time) {
	if rec.ID == "" {
		rec.ID = NewRecordID()
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

// outcomeArg converts an outcome pointer to a nullable string argument.
func outcomeArg(o *domain.Outcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}

// rowScanner abstracts pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTestRecord(row rowScanner) (*domain.TestRecord, error) {
	var (
		rec                              domain.TestRecord
		oncho, schisto, lf, helminths    *string
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

func outcomeFromStr(s *string) *domain.Outcome {
	if s == nil {
		return nil
	}
	o := domain.Outcome(*s)
	return &o
}
