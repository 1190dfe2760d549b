package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smartpark/parking-backend/internal/models"
)

// AdminUserRepository handles database operations for admin accounts
type AdminUserRepository struct {
	db DB
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(db DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetAdminByUsername retrieves an admin by username, nil when absent
func (r *AdminUserRepository) GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var admin models.AdminUser

	query := `
		SELECT id, username, password_hash, last_login_at, created_at
		FROM admin_users
		WHERE username = $1
	`

	err := r.db.GetContext(ctx, &admin, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin by username: %w", err)
	}

	return &admin, nil
}

// EnsureAdmin inserts the admin unless one with that username exists.
// It reports whether a row was created.
func (r *AdminUserRepository) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	query := `
		INSERT INTO admin_users (username, password_hash, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (username) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return false, fmt.Errorf("failed to seed admin: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// UpdateLastLogin stamps the admin's last successful login
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE admin_users SET last_login_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update admin last login: %w", err)
	}
	return nil
}
