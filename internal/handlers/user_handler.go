package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/services"
)

// SpotBooker books and releases spots
type SpotBooker interface {
	BookSpot(ctx context.Context, identity models.Identity, lotID int64, vehicleNumber string) (*models.ReservationDetail, error)
	ReleaseSpot(ctx context.Context, identity models.Identity, reservationID int64) (*models.ReservationDetail, error)
}

// StatsProvider builds the user dashboard and statistics
type StatsProvider interface {
	UserStats(ctx context.Context, identity models.Identity) (*models.ParkingStats, error)
	UserDashboard(ctx context.Context, identity models.Identity) (*models.UserDashboard, error)
}

// UserHandler handles the end-user routes
type UserHandler struct {
	booking SpotBooker
	stats   StatsProvider
	audit   auditRecorder
	logger  *logrus.Logger
}

// NewUserHandler creates a new UserHandler. auditService may be nil.
func NewUserHandler(booking SpotBooker, stats StatsProvider, auditService *services.AuditService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		booking: booking,
		stats:   stats,
		audit:   auditRecorder{service: auditService, logger: logger},
		logger:  logger,
	}
}

// Dashboard handles GET /user/dashboard
func (h *UserHandler) Dashboard(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	dashboard, err := h.stats.UserDashboard(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// BookSpot handles POST /user/book_spot/:lotId
func (h *UserHandler) BookSpot(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	lotID, err := parseIDParam(c, "lotId", "lot id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req models.BookSpotRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	reservation, err := h.booking.BookSpot(c.Request.Context(), identity, lotID, req.VehicleNumber)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.spotBooked(c.Request.Context(), identity, reservation, requestMeta(c))

	c.JSON(http.StatusCreated, gin.H{
		"message":     fmt.Sprintf("Spot %d booked successfully!", reservation.SpotNumber),
		"reservation": reservation,
	})
}

// ReleaseSpot handles GET /user/release_spot/:reservationId
func (h *UserHandler) ReleaseSpot(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	reservationID, err := parseIDParam(c, "reservationId", "reservation id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	reservation, err := h.booking.ReleaseSpot(c.Request.Context(), identity, reservationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.spotReleased(c.Request.Context(), identity, reservation, requestMeta(c))

	c.JSON(http.StatusOK, gin.H{
		"message":     fmt.Sprintf("Parking spot released! Total cost: %.2f", reservation.TotalCost),
		"reservation": reservation,
	})
}

// ParkingStats handles GET /user/parking_stats
func (h *UserHandler) ParkingStats(c *gin.Context) {
	identity, ok := requireIdentity(c, h.logger)
	if !ok {
		return
	}

	stats, err := h.stats.UserStats(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
