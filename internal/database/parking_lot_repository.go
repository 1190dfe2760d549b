package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smartpark/parking-backend/internal/models"
)

// ParkingLotRepository handles database operations for lots and their spots
type ParkingLotRepository struct {
	db DB
}

// NewParkingLotRepository creates a new parking lot repository
func NewParkingLotRepository(db DB) *ParkingLotRepository {
	return &ParkingLotRepository{db: db}
}

const lotSummaryColumns = `
	l.id, l.location_name, l.price_per_hour, l.address, l.pin_code, l.maximum_spots, l.created_at,
	COUNT(s.id) AS total_spots,
	COUNT(s.id) FILTER (WHERE s.status = 'occupied') AS occupied_spots,
	COUNT(s.id) FILTER (WHERE s.status = 'available') AS available_spots
`

// CreateLotWithSpots inserts a lot and spots 1..MaximumSpots in one transaction.
// The returned lot carries the price as stored, rounded to the column scale.
func (r *ParkingLotRepository) CreateLotWithSpots(ctx context.Context, lot *models.ParkingLot) (*models.ParkingLot, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := *lot
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO parking_lots (location_name, price_per_hour, address, pin_code, maximum_spots, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, price_per_hour, created_at
	`, lot.LocationName, lot.PricePerHour, lot.Address, lot.PinCode, lot.MaximumSpots).Scan(&created.ID, &created.PricePerHour, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create parking lot: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO parking_spots (lot_id, spot_number, status)
		SELECT $1, gs, 'available'
		FROM generate_series(1, $2::int) AS gs
	`, created.ID, lot.MaximumSpots)
	if err != nil {
		return nil, fmt.Errorf("failed to create parking spots: %w", err)
	}

	spots, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if spots != int64(lot.MaximumSpots) {
		return nil, fmt.Errorf("failed to create parking spots: created %d of %d", spots, lot.MaximumSpots)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit parking lot: %w", err)
	}

	return &created, nil
}

// GetLotSummary returns one lot with its occupancy counters
func (r *ParkingLotRepository) GetLotSummary(ctx context.Context, lotID int64) (*models.LotSummary, error) {
	var summary models.LotSummary

	query := `SELECT ` + lotSummaryColumns + `
		FROM parking_lots l
		LEFT JOIN parking_spots s ON s.lot_id = l.id
		WHERE l.id = $1
		GROUP BY l.id
	`

	err := r.db.GetContext(ctx, &summary, query, lotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to get parking lot: %w", err)
	}

	return &summary, nil
}

// ListLotSummaries returns every lot with occupancy counters
func (r *ParkingLotRepository) ListLotSummaries(ctx context.Context) ([]models.LotSummary, error) {
	lots := []models.LotSummary{}

	query := `SELECT ` + lotSummaryColumns + `
		FROM parking_lots l
		LEFT JOIN parking_spots s ON s.lot_id = l.id
		GROUP BY l.id
		ORDER BY l.id
	`

	if err := r.db.SelectContext(ctx, &lots, query); err != nil {
		return nil, fmt.Errorf("failed to list parking lots: %w", err)
	}

	return lots, nil
}

// ListAvailableLots returns lots that have at least one available spot
func (r *ParkingLotRepository) ListAvailableLots(ctx context.Context) ([]models.LotSummary, error) {
	lots := []models.LotSummary{}

	query := `SELECT ` + lotSummaryColumns + `
		FROM parking_lots l
		JOIN parking_spots s ON s.lot_id = l.id
		GROUP BY l.id
		HAVING COUNT(s.id) FILTER (WHERE s.status = 'available') > 0
		ORDER BY l.location_name, l.id
	`

	if err := r.db.SelectContext(ctx, &lots, query); err != nil {
		return nil, fmt.Errorf("failed to list available parking lots: %w", err)
	}

	return lots, nil
}

// ListSpotOccupancy returns the lot's spots with the active reservation of occupied ones
func (r *ParkingLotRepository) ListSpotOccupancy(ctx context.Context, lotID int64) ([]models.SpotOccupancy, error) {
	spots := []models.SpotOccupancy{}

	query := `
		SELECT s.id AS spot_id, s.spot_number, s.status,
		       r.id AS reservation_id, r.vehicle_number, r.parking_timestamp,
		       u.username
		FROM parking_spots s
		LEFT JOIN reservations r ON r.spot_id = s.id AND r.is_active
		LEFT JOIN users u ON u.id = r.user_id
		WHERE s.lot_id = $1
		ORDER BY s.spot_number
	`

	if err := r.db.SelectContext(ctx, &spots, query, lotID); err != nil {
		return nil, fmt.Errorf("failed to list parking spots: %w", err)
	}

	return spots, nil
}

// DeleteLot removes a lot, its spots and every reservation of those spots.
// It fails with ErrLotOccupied, leaving all rows untouched, if any spot is occupied.
func (r *ParkingLotRepository) DeleteLot(ctx context.Context, lotID int64) (*models.DeleteLotResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Blocks concurrent bookings, which hold the lot FOR SHARE
	var lockedID int64
	err = tx.GetContext(ctx, &lockedID, `SELECT id FROM parking_lots WHERE id = $1 FOR UPDATE`, lotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to lock parking lot: %w", err)
	}

	var occupied int
	err = tx.GetContext(ctx, &occupied, `
		SELECT COUNT(*) FROM parking_spots WHERE lot_id = $1 AND status = 'occupied'
	`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to count occupied spots: %w", err)
	}
	if occupied > 0 {
		return nil, models.ErrLotOccupied
	}

	result := &models.DeleteLotResult{LotID: lotID}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM reservations
		WHERE spot_id IN (SELECT id FROM parking_spots WHERE lot_id = $1)
	`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete reservations: %w", err)
	}
	if result.ReservationsDeleted, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM parking_spots WHERE lot_id = $1`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete parking spots: %w", err)
	}
	if result.SpotsDeleted, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = $1`, lotID); err != nil {
		return nil, fmt.Errorf("failed to delete parking lot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit parking lot deletion: %w", err)
	}

	return result, nil
}
