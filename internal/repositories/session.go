package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
)

// SessionRepository stores the [models.TokenState] for each signed-in browser.
type SessionRepository struct {
	store
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB, driver shared.Driver, clock shared.Clock) *SessionRepository {
	return &SessionRepository{store: newStore(db, driver, clock)}
}

// Create stores a new session for token and returns it with a generated id.
func (r *SessionRepository) Create(ctx context.Context, token models.TokenState) (*models.Session, error) {
	now := r.now()
	s := &models.Session{ID: shared.GenerateID(), Token: token, CreatedAt: now, UpdatedAt: now}

	_, err := r.exec(ctx,
		`INSERT INTO sessions (id, access_token, refresh_token, expires_at, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, token.AccessToken, token.RefreshToken, token.ExpiresAt, token.Error, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return s, nil
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.queryRow(ctx,
		`SELECT id, access_token, refresh_token, expires_at, error, created_at, updated_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.Token.AccessToken, &s.Token.RefreshToken, &s.Token.ExpiresAt, &s.Token.Error, &s.CreatedAt, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &s, nil
}

// Save overwrites the token state of an existing session.
func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	s.UpdatedAt = r.now()
	res, err := r.exec(ctx,
		`UPDATE sessions SET access_token = ?, refresh_token = ?, expires_at = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		s.Token.AccessToken, s.Token.RefreshToken, s.Token.ExpiresAt, s.Token.Error, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return affected(res, shared.ErrSessionNotFound)
}

// Delete removes a session. Removing a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.exec(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions untouched since before cutoff and returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.exec(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
