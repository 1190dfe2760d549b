package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/pkg/validator"
)

// LotService manages parking lots on behalf of administrators
type LotService struct {
	lots           LotStore
	users          UserStore
	validator      *validator.ParkingValidator
	maxSpotsPerLot int
	logger         *logrus.Logger
}

// NewLotService creates a new lot service
func NewLotService(lots LotStore, users UserStore, maxSpotsPerLot int, logger *logrus.Logger) *LotService {
	if maxSpotsPerLot <= 0 {
		maxSpotsPerLot = 1000
	}
	return &LotService{
		lots:           lots,
		users:          users,
		validator:      validator.NewParkingValidator(),
		maxSpotsPerLot: maxSpotsPerLot,
		logger:         logger,
	}
}

// CreateLot creates a lot and its spots numbered 1..MaxSpots
func (s *LotService) CreateLot(ctx context.Context, identity models.Identity, req models.CreateLotRequest) (*models.ParkingLot, error) {
	if err := identity.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	address := strings.TrimSpace(req.Address)

	if name == "" {
		return nil, models.NewValidationError("Location name is required")
	}
	if address == "" {
		return nil, models.NewValidationError("Address is required")
	}
	if req.PricePerHour == nil {
		return nil, models.NewValidationError("Price per hour is required")
	}
	price := *req.PricePerHour
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, models.NewValidationError("Price per hour must be a non-negative number")
	}
	if req.MaxSpots < 1 || req.MaxSpots > s.maxSpotsPerLot {
		return nil, models.NewValidationError(fmt.Sprintf("Maximum spots must be between 1 and %d", s.maxSpotsPerLot))
	}
	pinCode, err := s.validator.ValidatePinCode(req.PinCode)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	lot, err := s.lots.CreateLotWithSpots(ctx, &models.ParkingLot{
		LocationName: name,
		PricePerHour: price,
		Address:      address,
		PinCode:      pinCode,
		MaximumSpots: req.MaxSpots,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id": identity.PrincipalID,
		"lot_id":   lot.ID,
		"spots":    lot.MaximumSpots,
	}).Info("Parking lot created")

	return lot, nil
}

// DeleteLot removes an unoccupied lot together with its spots and their reservation history
func (s *LotService) DeleteLot(ctx context.Context, identity models.Identity, lotID int64) (*models.DeleteLotResult, error) {
	if err := identity.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if lotID <= 0 {
		return nil, models.ErrLotNotFound
	}

	result, err := s.lots.DeleteLot(ctx, lotID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id":             identity.PrincipalID,
		"lot_id":               lotID,
		"spots_deleted":        result.SpotsDeleted,
		"reservations_deleted": result.ReservationsDeleted,
	}).Info("Parking lot deleted")

	return result, nil
}

// ViewLot returns a lot with every spot and, for occupied spots, the active reservation
func (s *LotService) ViewLot(ctx context.Context, identity models.Identity, lotID int64) (*models.LotDetail, error) {
	if err := identity.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	if lotID <= 0 {
		return nil, models.ErrLotNotFound
	}

	summary, err := s.lots.GetLotSummary(ctx, lotID)
	if err != nil {
		return nil, err
	}

	spots, err := s.lots.ListSpotOccupancy(ctx, lotID)
	if err != nil {
		return nil, err
	}

	return &models.LotDetail{Lot: *summary, Spots: spots}, nil
}

// AdminDashboard lists all lots with occupancy counters and all registered users
func (s *LotService) AdminDashboard(ctx context.Context, identity models.Identity) (*models.AdminDashboard, error) {
	if err := identity.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}

	lots, err := s.lots.ListLotSummaries(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	return &models.AdminDashboard{Lots: lots, Users: users}, nil
}
