package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartpark/parking-backend/internal/database"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/utils"
)

// AuditService records security and parking events in audit_logs
type AuditService struct {
	db      database.DB
	enabled bool
}

// NewAuditService creates a new audit service; a disabled service drops every event
func NewAuditService(db database.DB, enabled bool) *AuditService {
	return &AuditService{
		db:      db,
		enabled: enabled,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	PrincipalID *int64                 // nil for pre-authentication events
	Role        string                 // "user", "admin" or empty
	Action      string                 // e.g. "login", "spot_booked", "lot_deleted"
	EntityType  string                 // e.g. "session", "reservation", "parking_lot"
	EntityID    *int64                 // ID of the affected entity
	IPAddress   string                 // Client IP address
	UserAgent   string                 // Client user agent
	Details     map[string]interface{} // Stored as JSONB
}

// RequestMeta carries the client data every audit record needs
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LogRegistration logs a new user account
func (s *AuditService) LogRegistration(ctx context.Context, user *models.User, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		PrincipalID: &user.ID,
		Role:        string(models.RoleUser),
		Action:      "register",
		EntityType:  "user",
		EntityID:    &user.ID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Details: map[string]interface{}{
			"username":    user.Username,
			"device_info": utils.ParseUserAgent(meta.UserAgent),
		},
	})
}

// LogLoginAttempt logs a login success or failure
func (s *AuditService) LogLoginAttempt(ctx context.Context, role models.Role, username string, principalID *int64, success bool, reason string, meta RequestMeta) error {
	details := map[string]interface{}{
		"username":    username,
		"success":     success,
		"device_info": utils.ParseUserAgent(meta.UserAgent),
	}
	if !success && reason != "" {
		details["failure_reason"] = reason
	}

	action := "login_failed"
	if success {
		action = "login"
	}

	return s.logEvent(ctx, AuditEvent{
		PrincipalID: principalID,
		Role:        string(role),
		Action:      action,
		EntityType:  "session",
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Details:     details,
	})
}

// LogLogout logs a session revocation
func (s *AuditService) LogLogout(ctx context.Context, identity models.Identity, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		PrincipalID: &identity.PrincipalID,
		Role:        string(identity.Role),
		Action:      "logout",
		EntityType:  "session",
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Details: map[string]interface{}{
			"session_id": identity.SessionID.String(),
		},
	})
}

// LogRateLimitViolation logs a throttled login
func (s *AuditService) LogRateLimitViolation(ctx context.Context, username, limitType string, retryAfter time.Time, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		Action:     "rate_limit_violation",
		EntityType: "rate_limit",
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Details: map[string]interface{}{
			"username":    username,
			"limit_type":  limitType,
			"retry_after": retryAfter,
		},
	})
}

// LogLotCreated logs a new parking lot
func (s *AuditService) LogLotCreated(ctx context.Context, identity models.Identity, lot *models.ParkingLot, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		PrincipalID: &identity.PrincipalID,
		Role:        string(identity.Role),
		Action:      "lot_created",
		EntityType:  "parking_lot",
		EntityID:    &lot.ID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Details: map[string]interface{}{
			"location_name":  lot.LocationName,
			"price_per_hour": lot.PricePerHour,
			"maximum_spots":  lot.MaximumSpots,
		},
	})
}

// LogLotDeleted logs a removed parking lot
func (s *AuditService) LogLotDeleted(ctx context.Context, identity models.Identity, result *models.DeleteLotResult, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		PrincipalID: &identity.PrincipalID,
		Role:        string(identity.Role),
		Action:      "lot_deleted",
		EntityType:  "parking_lot",
		EntityID:    &result.LotID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Details: map[string]interface{}{
			"spots_deleted":        result.SpotsDeleted,
			"reservations_deleted": result.ReservationsDeleted,
		},
	})
}

// LogSpotBooked logs a new reservation
func (s *AuditService) LogSpotBooked(ctx context.Context, identity models.Identity, reservation *models.ReservationDetail, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		PrincipalID: &identity.PrincipalID,
		Role:        string(identity.Role),
		Action:      "spot_booked",
		EntityType:  "reservation",
		EntityID:    &reservation.ID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Details: map[string]interface{}{
			"lot_id":         reservation.LotID,
			"spot_number":    reservation.SpotNumber,
			"vehicle_number": reservation.VehicleNumber,
		},
	})
}

// LogSpotReleased logs a completed reservation
func (s *AuditService) LogSpotReleased(ctx context.Context, identity models.Identity, reservation *models.ReservationDetail, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		PrincipalID: &identity.PrincipalID,
		Role:        string(identity.Role),
		Action:      "spot_released",
		EntityType:  "reservation",
		EntityID:    &reservation.ID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Details: map[string]interface{}{
			"lot_id":     reservation.LotID,
			"total_cost": reservation.TotalCost,
		},
	})
}

// logEvent writes to the audit_logs table
func (s *AuditService) logEvent(ctx context.Context, event AuditEvent) error {
	if !s.enabled {
		return nil
	}

	details := []byte("{}")
	if len(event.Details) > 0 {
		encoded, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = encoded
	}

	query := `
		INSERT INTO audit_logs (principal_id, role, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	_, err := s.db.ExecContext(ctx,
		query,
		event.PrincipalID,
		event.Role,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		string(details),
	)

	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	query := `
		DELETE FROM audit_logs
		WHERE created_at < $1
	`

	result, err := s.db.ExecContext(ctx, query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
