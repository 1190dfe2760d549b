package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smartpark/parking-backend/internal/models"
)

// ReservationRepository implements booking and release as single transactions
type ReservationRepository struct {
	db DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationDetailColumns = `
	r.id, r.spot_id, r.user_id, r.vehicle_number, r.parking_timestamp,
	r.leaving_timestamp, r.total_cost, r.is_active,
	s.spot_number, s.lot_id, l.location_name, l.address, l.price_per_hour
`

const reservationDetailJoins = `
	FROM reservations r
	JOIN parking_spots s ON s.id = r.spot_id
	JOIN parking_lots l ON l.id = s.lot_id
`

// BookFirstAvailable claims the lowest numbered available spot of a lot for userID.
// The spot claim is a single conditional update so concurrent bookings never share a spot.
// Competing bookings wait on the candidate row, so a claim that rolls back passes it to the next waiter.
func (r *ReservationRepository) BookFirstAvailable(ctx context.Context, userID, lotID int64, vehicleNumber string, parkedAt time.Time) (*models.ReservationDetail, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lot models.ParkingLot
	err = tx.GetContext(ctx, &lot, `
		SELECT id, location_name, price_per_hour, address, pin_code, maximum_spots, created_at
		FROM parking_lots
		WHERE id = $1
		FOR SHARE
	`, lotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to lock parking lot: %w", err)
	}

	var hasActive bool
	err = tx.GetContext(ctx, &hasActive, `
		SELECT EXISTS(SELECT 1 FROM reservations WHERE user_id = $1 AND is_active)
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active reservation: %w", err)
	}
	if hasActive {
		return nil, models.ErrAlreadyParked
	}

	var spot models.ParkingSpot
	err = tx.GetContext(ctx, &spot, `
		UPDATE parking_spots
		SET status = 'occupied'
		WHERE id = (
			SELECT id FROM parking_spots
			WHERE lot_id = $1 AND status = 'available'
			ORDER BY spot_number, id
			LIMIT 1
			FOR UPDATE
		) AND status = 'available'
		RETURNING id, lot_id, spot_number, status
	`, lotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrLotFull
		}
		return nil, fmt.Errorf("failed to claim parking spot: %w", err)
	}

	var reservation models.Reservation
	err = tx.GetContext(ctx, &reservation, `
		INSERT INTO reservations (spot_id, user_id, vehicle_number, parking_timestamp, total_cost, is_active)
		VALUES ($1, $2, $3, $4, 0, TRUE)
		RETURNING id, spot_id, user_id, vehicle_number, parking_timestamp, leaving_timestamp, total_cost, is_active
	`, spot.ID, userID, vehicleNumber, parkedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			// A concurrent booking by the same user won the race
			return nil, models.ErrAlreadyParked
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}

	return &models.ReservationDetail{
		Reservation:  reservation,
		SpotNumber:   spot.SpotNumber,
		LotID:        lot.ID,
		LotName:      lot.LocationName,
		LotAddress:   lot.Address,
		PricePerHour: lot.PricePerHour,
	}, nil
}

// ReleaseReservation closes an active reservation owned by userID, bills it and frees its spot
func (r *ReservationRepository) ReleaseReservation(ctx context.Context, reservationID, userID int64, leftAt time.Time) (*models.ReservationDetail, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var detail models.ReservationDetail
	err = tx.GetContext(ctx, &detail, `SELECT `+reservationDetailColumns+reservationDetailJoins+`
		WHERE r.id = $1
		FOR UPDATE OF r
	`, reservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to lock reservation: %w", err)
	}

	if detail.UserID != userID {
		return nil, models.ErrNotOwner
	}
	if !detail.IsActive {
		return nil, models.ErrReservationClosed
	}

	cost := models.ComputeParkingCost(detail.ParkingTimestamp, leftAt, detail.PricePerHour)

	result, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET leaving_timestamp = $2, total_cost = $3, is_active = FALSE
		WHERE id = $1 AND is_active
	`, reservationID, leftAt, cost)
	if err != nil {
		return nil, fmt.Errorf("failed to close reservation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		return nil, models.ErrReservationClosed
	}

	if _, err := tx.ExecContext(ctx, `UPDATE parking_spots SET status = 'available' WHERE id = $1`, detail.SpotID); err != nil {
		return nil, fmt.Errorf("failed to free parking spot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit release: %w", err)
	}

	detail.LeavingTimestamp = &leftAt
	detail.TotalCost = cost
	detail.IsActive = false

	return &detail, nil
}

// GetActiveReservation returns the user's active reservation, nil when none
func (r *ReservationRepository) GetActiveReservation(ctx context.Context, userID int64) (*models.ReservationDetail, error) {
	var detail models.ReservationDetail

	err := r.db.GetContext(ctx, &detail, `SELECT `+reservationDetailColumns+reservationDetailJoins+`
		WHERE r.user_id = $1 AND r.is_active
	`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active reservation: %w", err)
	}

	return &detail, nil
}

// ListCompletedReservations returns the user's closed reservations, most recent first.
// A limit of zero returns all of them.
func (r *ReservationRepository) ListCompletedReservations(ctx context.Context, userID int64, limit int) ([]models.ReservationDetail, error) {
	details := []models.ReservationDetail{}

	query := `SELECT ` + reservationDetailColumns + reservationDetailJoins + `
		WHERE r.user_id = $1 AND NOT r.is_active
		ORDER BY r.leaving_timestamp DESC, r.id DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	return details, nil
}
