package models

import (
	"time"
)

// SearchType selects which admin search is performed
type SearchType string

const (
	SearchBySpotNumber SearchType = "spot_number"
	SearchByVehicle    SearchType = "vehicle"
	SearchByLocation   SearchType = "location"
)

// ParseSearchType normalises the accepted spellings of a search type
func ParseSearchType(raw string) (SearchType, bool) {
	switch raw {
	case "spot_number", "spotNumber", "spot":
		return SearchBySpotNumber, true
	case "vehicle", "vehicle_number":
		return SearchByVehicle, true
	case "location":
		return SearchByLocation, true
	default:
		return "", false
	}
}

// SearchRequest represents the admin search form
type SearchRequest struct {
	SearchType  string `json:"search_type" form:"search_type"`
	SearchQuery string `json:"search_query" form:"search_query"`
}

// SpotSearchResult is a spot matched by number, with its lot
type SpotSearchResult struct {
	SpotID       int64      `json:"spot_id" db:"spot_id"`
	SpotNumber   int        `json:"spot_number" db:"spot_number"`
	Status       SpotStatus `json:"status" db:"status"`
	LotID        int64      `json:"lot_id" db:"lot_id"`
	LotName      string     `json:"lot_name" db:"location_name"`
	LotAddress   string     `json:"lot_address" db:"address"`
	PricePerHour float64    `json:"price_per_hour" db:"price_per_hour"`
}

// VehicleSearchResult is an active reservation matched by vehicle number
type VehicleSearchResult struct {
	ReservationID    int64     `json:"reservation_id" db:"reservation_id"`
	VehicleNumber    string    `json:"vehicle_number" db:"vehicle_number"`
	ParkingTimestamp time.Time `json:"parking_timestamp" db:"parking_timestamp"`
	SpotID           int64     `json:"spot_id" db:"spot_id"`
	SpotNumber       int       `json:"spot_number" db:"spot_number"`
	LotID            int64     `json:"lot_id" db:"lot_id"`
	LotName          string    `json:"lot_name" db:"location_name"`
	UserID           int64     `json:"user_id" db:"user_id"`
	Username         string    `json:"username" db:"username"`
	Email            string    `json:"email" db:"email"`
}

// SearchResults carries the results of exactly one search type
type SearchResults struct {
	SearchType SearchType            `json:"search_type"`
	Query      string                `json:"query"`
	Count      int                   `json:"count"`
	Spots      []SpotSearchResult    `json:"spots,omitempty"`
	Vehicles   []VehicleSearchResult `json:"vehicles,omitempty"`
	Lots       []ParkingLot          `json:"lots,omitempty"`
}
