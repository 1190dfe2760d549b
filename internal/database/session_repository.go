package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smartpark/parking-backend/internal/models"
)

// SessionRepository persists login sessions
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession stores a new session
func (r *SessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, principal_id, username, role, ip_address, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.PrincipalID,
		session.Username,
		session.Role,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetActiveSession returns the session if it is neither revoked nor expired, nil otherwise
func (r *SessionRepository) GetActiveSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session

	query := `
		SELECT id, principal_id, username, role, ip_address, user_agent, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`

	err := r.db.GetContext(ctx, &session, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// RevokeSession marks a session as logged out
func (r *SessionRepository) RevokeSession(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// DeleteStaleSessions removes expired sessions and sessions revoked before cutoff
func (r *SessionRepository) DeleteStaleSessions(ctx context.Context, revokedBefore time.Time) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE expires_at < NOW() OR revoked_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, revokedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
