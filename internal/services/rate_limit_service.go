package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smartpark/parking-backend/internal/database"
)

// RateLimitService throttles failed login attempts per username and per IP
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
	now    func() time.Time
}

// RateLimitConfig holds login throttling configuration
type RateLimitConfig struct {
	MaxUsernameAttempts int           // Failed logins per username
	MaxIPAttempts       int           // Failed logins per IP
	Window              time.Duration // Sliding window for both limits
}

// DefaultRateLimitConfig returns the default login throttle configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxUsernameAttempts: 5,
		MaxIPAttempts:       20,
		Window:              15 * time.Minute,
	}
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, config RateLimitConfig) *RateLimitService {
	if config.MaxUsernameAttempts <= 0 || config.Window <= 0 {
		config = DefaultRateLimitConfig()
	}
	if config.MaxIPAttempts <= 0 {
		config.MaxIPAttempts = config.MaxUsernameAttempts * 4
	}
	return &RateLimitService{
		db:     db,
		config: config,
		now:    time.Now,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "username" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckLoginAllowed returns a RateLimitError if the username or IP is locked out
func (s *RateLimitService) CheckLoginAllowed(ctx context.Context, username, ip string) error {
	if username != "" {
		count, lastAttempt, err := s.getAttemptCount(ctx, username, "username")
		if err != nil {
			return fmt.Errorf("failed to check username rate limit: %w", err)
		}

		if count >= s.config.MaxUsernameAttempts {
			retryAfter := lastAttempt.Add(s.config.Window)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many failed login attempts for this account. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "username",
			}
		}
	}

	if ip != "" {
		count, lastAttempt, err := s.getAttemptCount(ctx, ip, "ip")
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}

		if count >= s.config.MaxIPAttempts {
			retryAfter := lastAttempt.Add(s.config.Window)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many failed login attempts from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "ip",
			}
		}
	}

	return nil
}

func (s *RateLimitService) getAttemptCount(ctx context.Context, identifier, identifierType string) (int, time.Time, error) {
	windowStart := s.now().Add(-s.config.Window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM login_attempts
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var count int
	var lastAttempt time.Time

	err := s.db.QueryRowxContext(ctx, query, identifier, identifierType, windowStart).Scan(&count, &lastAttempt)
	if err != nil && err != sql.ErrNoRows {
		return 0, time.Time{}, err
	}

	return count, lastAttempt, nil
}

// RecordFailedLogin records a failed attempt against both the username and the IP
func (s *RateLimitService) RecordFailedLogin(ctx context.Context, username, ip string) error {
	if username != "" {
		if err := s.recordAttempt(ctx, username, "username"); err != nil {
			return fmt.Errorf("failed to record username attempt: %w", err)
		}
	}

	if ip != "" {
		if err := s.recordAttempt(ctx, ip, "ip"); err != nil {
			return fmt.Errorf("failed to record IP attempt: %w", err)
		}
	}

	return nil
}

func (s *RateLimitService) recordAttempt(ctx context.Context, identifier, identifierType string) error {
	query := `
		INSERT INTO login_attempts (identifier, identifier_type, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.db.ExecContext(ctx, query, identifier, identifierType, s.now())
	return err
}

// ResetLoginAttempts clears the failure history of a username after a successful login
func (s *RateLimitService) ResetLoginAttempts(ctx context.Context, username string) error {
	query := `
		DELETE FROM login_attempts
		WHERE identifier = $1 AND identifier_type = 'username'
	`

	if _, err := s.db.ExecContext(ctx, query, username); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// CleanupExpiredRateLimits removes attempts older than the throttle window
func (s *RateLimitService) CleanupExpiredRateLimits(ctx context.Context) (int64, error) {
	cutoffTime := s.now().Add(-s.config.Window)

	query := `
		DELETE FROM login_attempts
		WHERE created_at < $1
	`

	result, err := s.db.ExecContext(ctx, query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
