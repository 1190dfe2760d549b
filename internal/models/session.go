package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which kind of principal owns a session
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the request-scoped principal resolved from a session token.
// It is a value type; every operation receives it explicitly.
type Identity struct {
	PrincipalID int64     `json:"principal_id"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
	SessionID   uuid.UUID `json:"session_id"`
}

// IsAdmin reports whether the identity belongs to an admin session
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IsUser reports whether the identity belongs to a user session
func (i Identity) IsUser() bool {
	return i.Role == RoleUser
}

// RequireRole returns ErrForbidden unless the identity carries role
func (i Identity) RequireRole(role Role) error {
	if i.PrincipalID == 0 || i.Role != role {
		return ErrForbidden
	}
	return nil
}

// Session represents a persisted login session
type Session struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PrincipalID int64      `json:"principal_id" db:"principal_id"`
	Username    string     `json:"username" db:"username"`
	Role        Role       `json:"role" db:"role"`
	IPAddress   string     `json:"ip_address" db:"ip_address"`
	UserAgent   string     `json:"user_agent" db:"user_agent"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// IsActive reports whether the session can still authenticate requests at now
func (s *Session) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Identity converts the session into the request-scoped principal
func (s *Session) Identity() Identity {
	return Identity{
		PrincipalID: s.PrincipalID,
		Username:    s.Username,
		Role:        s.Role,
		SessionID:   s.ID,
	}
}
