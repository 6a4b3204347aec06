// Package litestore provides an embedded SQLite implementation of the
// surveillance store contracts for standalone operation. It requires no
// external database and keeps the same query semantics as the Postgres
// repositories.
package litestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Store implements the test record, stats, forecast, user and session store
// contracts over a single SQLite database.
type Store struct {
	db     *sql.DB
	dbPath string
	log    *logrus.Logger
	now    func() time.Time
}

// NewStore creates a SQLite store at the given path, creating the database
// file and schema if they don't exist.
func NewStore(dbPath string, logger *logrus.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
		log:    logger,
		now:    time.Now,
	}, nil
}

// NewStoreWithDB wraps an existing database handle. The schema is assumed to
// exist already; used by tests.
func NewStoreWithDB(db *sql.DB, logger *logrus.Logger) *Store {
	return &Store{
		db:  db,
		log: logger,
		now: time.Now,
	}
}

// NewMemoryStore creates an in-memory SQLite store with the schema applied.
func NewMemoryStore(logger *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return NewStoreWithDB(db, logger), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Health checks the database connection.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS water_ml_user (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT,
		banned INTEGER NOT NULL DEFAULT 0,
		ban_reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS water_ml_session (
		id TEXT PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS water_ml_tests (
		id TEXT PRIMARY KEY,
		participant_id TEXT,
		name TEXT,
		gender TEXT,
		age INTEGER,
		location TEXT,
		date DATETIME,
		user_id TEXT NOT NULL,
		oncho TEXT,
		schistosomiasis TEXT,
		lf TEXT,
		helminths TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tests_user_id ON water_ml_tests(user_id);
	CREATE INDEX IF NOT EXISTS idx_tests_created_at ON water_ml_tests(created_at);

	CREATE TABLE IF NOT EXISTS water_ml_forecasts (
		id TEXT PRIMARY KEY,
		disease_type TEXT NOT NULL,
		month TEXT NOT NULL,
		is_forecast INTEGER NOT NULL DEFAULT 0,
		total_tests INTEGER,
		positive_cases INTEGER,
		infection_rate INTEGER,
		forecasted_total_tests INTEGER,
		forecasted_positive_cases INTEGER,
		forecasted_infection_rate INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_forecasts_disease_month ON water_ml_forecasts(disease_type, month);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}
