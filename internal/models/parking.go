package models

import (
	"time"
)

// SpotStatus is the occupancy state of a parking spot
type SpotStatus string

const (
	SpotAvailable SpotStatus = "available"
	SpotOccupied  SpotStatus = "occupied"
)

// ParkingLot represents a parking facility with a fixed number of spots
type ParkingLot struct {
	ID           int64     `json:"id" db:"id"`
	LocationName string    `json:"location_name" db:"location_name"`
	PricePerHour float64   `json:"price_per_hour" db:"price_per_hour"`
	Address      string    `json:"address" db:"address"`
	PinCode      string    `json:"pin_code" db:"pin_code"`
	MaximumSpots int       `json:"maximum_spots" db:"maximum_spots"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ParkingSpot represents one space inside a lot
type ParkingSpot struct {
	ID         int64      `json:"id" db:"id"`
	LotID      int64      `json:"lot_id" db:"lot_id"`
	SpotNumber int        `json:"spot_number" db:"spot_number"`
	Status     SpotStatus `json:"status" db:"status"`
}

// Reservation links a user, a spot and a parking interval
type Reservation struct {
	ID               int64      `json:"id" db:"id"`
	SpotID           int64      `json:"spot_id" db:"spot_id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	VehicleNumber    string     `json:"vehicle_number" db:"vehicle_number"`
	ParkingTimestamp time.Time  `json:"parking_timestamp" db:"parking_timestamp"`
	LeavingTimestamp *time.Time `json:"leaving_timestamp,omitempty" db:"leaving_timestamp"`
	TotalCost        float64    `json:"total_cost" db:"total_cost"`
	IsActive         bool       `json:"is_active" db:"is_active"`
}

// ReservationDetail is a reservation joined with its spot and lot
type ReservationDetail struct {
	Reservation
	SpotNumber   int     `json:"spot_number" db:"spot_number"`
	LotID        int64   `json:"lot_id" db:"lot_id"`
	LotName      string  `json:"lot_name" db:"location_name"`
	LotAddress   string  `json:"lot_address" db:"address"`
	PricePerHour float64 `json:"price_per_hour" db:"price_per_hour"`
}

// DurationHours returns the elapsed hours of a completed reservation
func (d *ReservationDetail) DurationHours() float64 {
	if d.LeavingTimestamp == nil {
		return 0
	}
	return ElapsedHours(d.ParkingTimestamp, *d.LeavingTimestamp)
}

// LotSummary is a lot with its occupancy counters
type LotSummary struct {
	ParkingLot
	TotalSpots     int `json:"total_spots" db:"total_spots"`
	OccupiedSpots  int `json:"occupied_spots" db:"occupied_spots"`
	AvailableSpots int `json:"available_spots" db:"available_spots"`
}

// SpotOccupancy is one row of the lot detail view
type SpotOccupancy struct {
	SpotID           int64      `json:"spot_id" db:"spot_id"`
	SpotNumber       int        `json:"spot_number" db:"spot_number"`
	Status           SpotStatus `json:"status" db:"status"`
	ReservationID    *int64     `json:"reservation_id,omitempty" db:"reservation_id"`
	VehicleNumber    *string    `json:"vehicle_number,omitempty" db:"vehicle_number"`
	ParkingTimestamp *time.Time `json:"parking_timestamp,omitempty" db:"parking_timestamp"`
	Username         *string    `json:"username,omitempty" db:"username"`
}

// LotDetail is the admin view of a single lot
type LotDetail struct {
	Lot   LotSummary      `json:"lot"`
	Spots []SpotOccupancy `json:"spots"`
}

// DeleteLotResult reports what a lot deletion removed
type DeleteLotResult struct {
	LotID               int64 `json:"lot_id"`
	SpotsDeleted        int64 `json:"spots_deleted"`
	ReservationsDeleted int64 `json:"reservations_deleted"`
}

// AdminDashboard lists all lots with counters and all registered users
type AdminDashboard struct {
	Lots  []LotSummary `json:"lots"`
	Users []User       `json:"users"`
}

// UserDashboard is the landing view of a signed-in user
type UserDashboard struct {
	ActiveReservation  *ReservationDetail  `json:"active_reservation"`
	RecentReservations []ReservationDetail `json:"recent_reservations"`
	AvailableLots      []LotSummary        `json:"available_lots"`
}

// CreateLotRequest represents the lot creation payload
type CreateLotRequest struct {
	Name         string   `json:"name" form:"name" binding:"required,max=100"`
	PricePerHour *float64 `json:"price" form:"price" binding:"required,gte=0"`
	Address      string   `json:"address" form:"address" binding:"required,max=255"`
	PinCode      string   `json:"pin_code" form:"pin_code" binding:"required,pincode"`
	MaxSpots     int      `json:"max_spots" form:"max_spots" binding:"required,gte=1"`
}

// BookSpotRequest represents the booking payload
type BookSpotRequest struct {
	VehicleNumber string `json:"vehicle_number" form:"vehicle_number" binding:"required,vehicle"`
}
