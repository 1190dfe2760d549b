package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smartpark/parking-backend/internal/models"
)

// UserStore is the subset of the user repository the services need
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// AdminStore persists administrator accounts
type AdminStore interface {
	GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}

// SessionStore persists login sessions
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetActiveSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error
	DeleteStaleSessions(ctx context.Context, revokedBefore time.Time) (int64, error)
}

// LoginThrottle limits repeated failed logins
type LoginThrottle interface {
	CheckLoginAllowed(ctx context.Context, username, ip string) error
	RecordFailedLogin(ctx context.Context, username, ip string) error
	ResetLoginAttempts(ctx context.Context, username string) error
}

// LotStore persists parking lots and their spots
type LotStore interface {
	CreateLotWithSpots(ctx context.Context, lot *models.ParkingLot) (*models.ParkingLot, error)
	GetLotSummary(ctx context.Context, lotID int64) (*models.LotSummary, error)
	ListLotSummaries(ctx context.Context) ([]models.LotSummary, error)
	ListAvailableLots(ctx context.Context) ([]models.LotSummary, error)
	ListSpotOccupancy(ctx context.Context, lotID int64) ([]models.SpotOccupancy, error)
	DeleteLot(ctx context.Context, lotID int64) (*models.DeleteLotResult, error)
}

// ReservationStore runs the booking transactions
type ReservationStore interface {
	BookFirstAvailable(ctx context.Context, userID, lotID int64, vehicleNumber string, parkedAt time.Time) (*models.ReservationDetail, error)
	ReleaseReservation(ctx context.Context, reservationID, userID int64, leftAt time.Time) (*models.ReservationDetail, error)
	GetActiveReservation(ctx context.Context, userID int64) (*models.ReservationDetail, error)
	ListCompletedReservations(ctx context.Context, userID int64, limit int) ([]models.ReservationDetail, error)
}

// SearchStore answers admin search queries
type SearchStore interface {
	FindSpotsByNumber(ctx context.Context, spotNumber int) ([]models.SpotSearchResult, error)
	FindActiveByVehicle(ctx context.Context, fragment string) ([]models.VehicleSearchResult, error)
	FindLotsByLocation(ctx context.Context, fragment string) ([]models.ParkingLot, error)
}
