package litestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

const userColumns = `id, name, email, role, banned, ban_reason, created_at, updated_at`

// List returns all users newest-first.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM water_ml_user ORDER BY created_at DESC`)
	if err != nil {
		s.log.WithError(err).Error("Failed to list users")
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanLiteUser(rows)
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

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanLiteUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM water_ml_user WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanLiteUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM water_ml_user WHERE email = ?`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	now := s.now()
	if u.ID == "" {
		u.ID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO water_ml_user (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Role, u.Banned, u.BanReason, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": u.ID,
			"email":   u.Email,
			"error":   err,
		}).Error("Failed to create user")
		return fmt.Errorf("creating user: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": u.ID,
		"email":   u.Email,
	}).Info("User created")
	return nil
}

// UpdateUser applies a partial update to a user.
func (s *Store) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	sets := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
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
	add("updated_at", s.now())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE water_ml_user SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": id,
			"error":   err,
		}).Error("Failed to update user")
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}

	s.log.WithField("user_id", id).Info("User updated")
	return s.GetUserByID(ctx, id)
}

// SoftDeleteUser bans the user instead of removing the row, preserving the
// foreign reference from their test records.
func (s *Store) SoftDeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE water_ml_user SET banned = 1, updated_at = ? WHERE id = ?`,
		s.now(), id,
	)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": id,
			"error":   err,
		}).Error("Failed to soft-delete user")
		return fmt.Errorf("soft-deleting user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}

	s.log.WithField("user_id", id).Info("User banned")
	return nil
}

func scanLiteUser(row scanner) (*domain.User, error) {
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

// CreateSession issues a new session token for the user.
func (s *Store) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error) {
	now := s.now()
	sess := &domain.Session{
		ID:        strings.ReplaceAll(uuid.New().String(), "-", ""),
		Token:     strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", ""),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO water_ml_session (id, token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Token, sess.UserID, sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to create session")
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.log.WithField("user_id", userID).Info("Session created")
	return sess, nil
}

// GetSessionByToken looks up a session by its bearer token. Expired or
// unknown tokens are ErrUnauthorized.
func (s *Store) GetSessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, token, user_id, expires_at, created_at
		FROM water_ml_session WHERE token = ?`, token,
	).Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("unknown session token: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if sess.Expired(s.now()) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	return &sess, nil
}

// DeleteSessionByToken revokes a single session.
func (s *Store) DeleteSessionByToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM water_ml_session WHERE token = ?`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteSessionsByUser revokes all sessions for a user.
func (s *Store) DeleteSessionsByUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM water_ml_session WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting user sessions: %w", err)
	}
	return nil
}

// Users exposes the account methods under the UserStore contract. The Store
// itself satisfies TestRecordStore, so the overlapping method names need a
// separate receiver.
func (s *Store) Users() domain.UserStore {
	return userView{s}
}

// Sessions exposes the session methods under the SessionStore contract.
func (s *Store) Sessions() domain.SessionStore {
	return sessionView{s}
}

type userView struct{ s *Store }

func (v userView) List(ctx context.Context) ([]*domain.User, error) {
	return v.s.ListUsers(ctx)
}

func (v userView) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return v.s.GetUserByID(ctx, id)
}

func (v userView) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return v.s.GetUserByEmail(ctx, email)
}

func (v userView) Create(ctx context.Context, u *domain.User) error {
	return v.s.CreateUser(ctx, u)
}

func (v userView) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	return v.s.UpdateUser(ctx, id, upd)
}

func (v userView) SoftDelete(ctx context.Context, id string) error {
	return v.s.SoftDeleteUser(ctx, id)
}

type sessionView struct{ s *Store }

func (v sessionView) Create(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error) {
	return v.s.CreateSession(ctx, userID, ttl)
}

func (v sessionView) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return v.s.GetSessionByToken(ctx, token)
}

func (v sessionView) DeleteByToken(ctx context.Context, token string) error {
	return v.s.DeleteSessionByToken(ctx, token)
}

func (v sessionView) DeleteByUser(ctx context.Context, userID string) error {
	return v.s.DeleteSessionsByUser(ctx, userID)
}
