package database

import (
	"context"
	"fmt"

	"github.com/smartpark/parking-backend/internal/models"
)

// SearchRepository runs the admin search queries
type SearchRepository struct {
	db DB
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(db DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// FindSpotsByNumber returns every spot with that number across all lots
func (r *SearchRepository) FindSpotsByNumber(ctx context.Context, spotNumber int) ([]models.SpotSearchResult, error) {
	results := []models.SpotSearchResult{}

	query := `
		SELECT s.id AS spot_id, s.spot_number, s.status,
		       l.id AS lot_id, l.location_name, l.address, l.price_per_hour
		FROM parking_spots s
		JOIN parking_lots l ON l.id = s.lot_id
		WHERE s.spot_number = $1
		ORDER BY l.id
	`

	if err := r.db.SelectContext(ctx, &results, query, spotNumber); err != nil {
		return nil, fmt.Errorf("failed to search spots: %w", err)
	}

	return results, nil
}

// FindActiveByVehicle returns active reservations whose vehicle number contains
// fragment. Matching is case-sensitive.
func (r *SearchRepository) FindActiveByVehicle(ctx context.Context, fragment string) ([]models.VehicleSearchResult, error) {
	results := []models.VehicleSearchResult{}

	query := `
		SELECT r.id AS reservation_id, r.vehicle_number, r.parking_timestamp,
		       s.id AS spot_id, s.spot_number,
		       l.id AS lot_id, l.location_name,
		       u.id AS user_id, u.username, u.email
		FROM reservations r
		JOIN parking_spots s ON s.id = r.spot_id
		JOIN parking_lots l ON l.id = s.lot_id
		JOIN users u ON u.id = r.user_id
		WHERE r.is_active AND strpos(r.vehicle_number, $1) > 0
		ORDER BY r.parking_timestamp DESC, r.id
	`

	if err := r.db.SelectContext(ctx, &results, query, fragment); err != nil {
		return nil, fmt.Errorf("failed to search vehicles: %w", err)
	}

	return results, nil
}

// FindLotsByLocation returns lots whose location name contains fragment
func (r *SearchRepository) FindLotsByLocation(ctx context.Context, fragment string) ([]models.ParkingLot, error) {
	lots := []models.ParkingLot{}

	query := `
		SELECT id, location_name, price_per_hour, address, pin_code, maximum_spots, created_at
		FROM parking_lots
		WHERE strpos(location_name, $1) > 0
		ORDER BY id
	`

	if err := r.db.SelectContext(ctx, &lots, query, fragment); err != nil {
		return nil, fmt.Errorf("failed to search lots: %w", err)
	}

	return lots, nil
}
