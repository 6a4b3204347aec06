package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

const userColumns = `id, name, email, role, banned, ban_reason, created_at, updated_at`

// UserRepository handles account persistence. Deleting a user is a soft ban
// so test rows keep their owning foreign reference.
type UserRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *pgxpool.Pool, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: logger,
	}
}

// List returns all users newest-first.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM water_ml_user ORDER BY created_at DESC`)
	if err != nil {
		r.log.WithError(err).Error("Failed to list users")
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM water_ml_user WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM water_ml_user WHERE email = $1`, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	now := time.Now()
	if u.ID == "" {
		u.ID = NewRecordID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO water_ml_user (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.Role, u.Banned, u.BanReason, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id": u.ID,
			"email":   u.Email,
			"error":   err,
		}).Error("Failed to create user")
		return fmt.Errorf("creating user: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"user_id": u.ID,
		"email":   u.Email,
	}).Info("User created")
	return nil
}

// Update applies a partial update to a user.
func (r *UserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	sets := []string{}
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		add("name", upd.Name)
	}
	if upd.Email != nil {
		add("email", upd.Email)
	}
	if upd.Role != nil {
		add("role", upd.Role)
	}
	args = append(args, time.Now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf(
		`UPDATE water_ml_user SET %s WHERE id = $1 RETURNING `+userColumns,
		strings.Join(sets, ", "),
	)

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"user_id": id,
			"error":   err,
		}).Error("Failed to update user")
		return nil, fmt.Errorf("updating user: %w", err)
	}

	r.log.WithField("user_id", id).Info("User updated")
	return u, nil
}

// SoftDelete bans the user instead of removing the row, preserving the
// foreign reference from their test records.
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE water_ml_user SET banned = TRUE, updated_at = $2 WHERE id = $1`,
		id, time.Now(),
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id": id,
			"error":   err,
		}).Error("Failed to soft-delete user")
		return fmt.Errorf("soft-deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}

	r.log.WithField("user_id", id).Info("User banned")
	return nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Banned, &u.BanReason,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
