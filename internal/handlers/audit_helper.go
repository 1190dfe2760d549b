package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/services"
)

// auditRecorder writes audit events without ever failing the request
type auditRecorder struct {
	service *services.AuditService
	logger  *logrus.Logger
}

// logAuditError logs audit service errors without failing the request
func (a auditRecorder) logAuditError(operation string, err error) {
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err.Error(),
		}).Warn("Audit logging failed")
	}
}

func (a auditRecorder) registration(ctx context.Context, user *models.User, meta services.RequestMeta) {
	if a.service == nil {
		return
	}
	a.logAuditError("LogRegistration", a.service.LogRegistration(ctx, user, meta))
}

func (a auditRecorder) loginAttempt(ctx context.Context, role models.Role, username string, principalID *int64, success bool, reason string, meta services.RequestMeta) {
	if a.service == nil {
		return
	}
	a.logAuditError("LogLoginAttempt", a.service.LogLoginAttempt(ctx, role, username, principalID, success, reason, meta))
}

func (a auditRecorder) logout(ctx context.Context, identity models.Identity, meta services.RequestMeta) {
	if a.service == nil {
		return
	}
	a.logAuditError("LogLogout", a.service.LogLogout(ctx, identity, meta))
}

func (a auditRecorder) rateLimitViolation(ctx context.Context, username, limitType string, retryAfter time.Time, meta services.RequestMeta) {
	if a.service == nil {
		return
	}
	a.logAuditError("LogRateLimitViolation", a.service.LogRateLimitViolation(ctx, username, limitType, retryAfter, meta))
}

func (a auditRecorder) lotCreated(ctx context.Context, identity models.Identity, lot *models.ParkingLot, meta services.RequestMeta) {
	if a.service == nil {
		return
	}
	a.logAuditError("LogLotCreated", a.service.LogLotCreated(ctx, identity, lot, meta))
}

func (a auditRecorder) lotDeleted(ctx context.Context, identity models.Identity, result *models.DeleteLotResult, meta services.RequestMeta) {
	if a.service == nil {
		return
	}
	a.logAuditError("LogLotDeleted", a.service.LogLotDeleted(ctx, identity, result, meta))
}

func (a auditRecorder) spotBooked(ctx context.Context, identity models.Identity, reservation *models.ReservationDetail, meta services.RequestMeta) {
	if a.service == nil {
		return
	}
	a.logAuditError("LogSpotBooked", a.service.LogSpotBooked(ctx, identity, reservation, meta))
}

func (a auditRecorder) spotReleased(ctx context.Context, identity models.Identity, reservation *models.ReservationDetail, meta services.RequestMeta) {
	if a.service == nil {
		return
	}
	a.logAuditError("LogSpotReleased", a.service.LogSpotReleased(ctx, identity, reservation, meta))
}
