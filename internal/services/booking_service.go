package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/metrics"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/pkg/validator"
)

// BookingService books and releases parking spots for end users
type BookingService struct {
	reservations ReservationStore
	validator    *validator.ParkingValidator
	logger       *logrus.Logger
	now          func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(reservations ReservationStore, logger *logrus.Logger) *BookingService {
	return &BookingService{
		reservations: reservations,
		validator:    validator.NewParkingValidator(),
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock replaces the time source, used to simulate elapsed parking time
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// BookSpot reserves the first available spot of lotID for the calling user
func (s *BookingService) BookSpot(ctx context.Context, identity models.Identity, lotID int64, vehicleNumber string) (*models.ReservationDetail, error) {
	if err := identity.RequireRole(models.RoleUser); err != nil {
		return nil, err
	}

	vehicle, err := s.validator.ValidateVehicleNumber(vehicleNumber)
	if err != nil {
		metrics.RecordBooking("VALIDATION_FAILED")
		return nil, models.NewValidationError(err.Error())
	}

	reservation, err := s.reservations.BookFirstAvailable(ctx, identity.PrincipalID, lotID, vehicle, s.now().UTC())
	if err != nil {
		if domainErr, ok := models.AsDomainError(err); ok {
			metrics.RecordBooking(domainErr.Code)
		} else {
			metrics.RecordBooking("ERROR")
		}
		return nil, err
	}

	metrics.RecordBooking("success")
	s.logger.WithFields(logrus.Fields{
		"user_id":        identity.PrincipalID,
		"lot_id":         lotID,
		"spot_number":    reservation.SpotNumber,
		"reservation_id": reservation.ID,
	}).Info("Parking spot booked")

	return reservation, nil
}

// ReleaseSpot closes the caller's reservation and bills elapsed hours at the lot's rate
func (s *BookingService) ReleaseSpot(ctx context.Context, identity models.Identity, reservationID int64) (*models.ReservationDetail, error) {
	if err := identity.RequireRole(models.RoleUser); err != nil {
		return nil, err
	}
	if reservationID <= 0 {
		return nil, models.ErrReservationNotFound
	}

	reservation, err := s.reservations.ReleaseReservation(ctx, reservationID, identity.PrincipalID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	hours := reservation.DurationHours()
	metrics.RecordRelease(reservation.TotalCost, hours)
	s.logger.WithFields(logrus.Fields{
		"user_id":        identity.PrincipalID,
		"reservation_id": reservation.ID,
		"total_cost":     reservation.TotalCost,
		"hours":          fmt.Sprintf("%.2f", hours),
	}).Info("Parking spot released")

	return reservation, nil
}
