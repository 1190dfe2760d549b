package services

import (
	"context"

	"github.com/smartpark/parking-backend/internal/models"
)

// recentReservationLimit is how many completed reservations the user dashboard shows
const recentReservationLimit = 10

// StatsService builds the user-facing dashboard and parking statistics
type StatsService struct {
	reservations ReservationStore
	lots         LotStore
}

// NewStatsService creates a new stats service
func NewStatsService(reservations ReservationStore, lots LotStore) *StatsService {
	return &StatsService{
		reservations: reservations,
		lots:         lots,
	}
}

// UserStats aggregates the caller's completed reservations
func (s *StatsService) UserStats(ctx context.Context, identity models.Identity) (*models.ParkingStats, error) {
	if err := identity.RequireRole(models.RoleUser); err != nil {
		return nil, err
	}

	history, err := s.reservations.ListCompletedReservations(ctx, identity.PrincipalID, 0)
	if err != nil {
		return nil, err
	}

	stats := models.ComputeParkingStats(history)
	return &stats, nil
}

// UserDashboard returns the active reservation, recent history and lots with free spots
func (s *StatsService) UserDashboard(ctx context.Context, identity models.Identity) (*models.UserDashboard, error) {
	if err := identity.RequireRole(models.RoleUser); err != nil {
		return nil, err
	}

	active, err := s.reservations.GetActiveReservation(ctx, identity.PrincipalID)
	if err != nil {
		return nil, err
	}

	recent, err := s.reservations.ListCompletedReservations(ctx, identity.PrincipalID, recentReservationLimit)
	if err != nil {
		return nil, err
	}

	lots, err := s.lots.ListAvailableLots(ctx)
	if err != nil {
		return nil, err
	}

	if recent == nil {
		recent = []models.ReservationDetail{}
	}
	if lots == nil {
		lots = []models.LotSummary{}
	}

	return &models.UserDashboard{
		ActiveReservation:  active,
		RecentReservations: recent,
		AvailableLots:      lots,
	}, nil
}
