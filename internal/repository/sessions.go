package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

// SessionRepository issues and validates opaque bearer-token sessions.
type SessionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *pgxpool.Pool, logger *logrus.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: logger,
	}
}

// Create issues a new session token for the user.
func (r *SessionRepository) Create(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:        NewRecordID(),
		Token:     NewRecordID() + NewRecordID(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO water_ml_session (id, token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sess.ID, sess.Token, sess.UserID, sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to create session")
		return nil, fmt.Errorf("creating session: %w", err)
	}

	r.log.WithField("user_id", userID).Info("Session created")
	return sess, nil
}

// GetByToken looks up a session by its bearer token. Expired or unknown
// tokens are ErrUnauthorized.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var sess domain.Session
	err := r.db.QueryRow(ctx, `
		SELECT id, token, user_id, expires_at, created_at
		FROM water_ml_session WHERE token = $1`, token,
	).Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("unknown session token: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	return &sess, nil
}

// DeleteByToken revokes a single session.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM water_ml_session WHERE token = $1`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteByUser revokes all sessions for a user, used when the user is banned.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM water_ml_session WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting user sessions: %w", err)
	}
	return nil
}
