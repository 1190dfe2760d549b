package models

import (
	"math"
	"sort"
	"time"
)

// ElapsedHours converts the interval between two instants into fractional hours.
// Negative intervals are treated as zero.
func ElapsedHours(from, to time.Time) float64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return d.Seconds() / 3600
}

// ComputeParkingCost bills an interval at pricePerHour, rounded to cents
func ComputeParkingCost(parkedAt, leftAt time.Time, pricePerHour float64) float64 {
	return roundTo(ElapsedHours(parkedAt, leftAt)*pricePerHour, 2)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// ParkingStats summarises a user's completed reservations
type ParkingStats struct {
	TotalParkings   int     `json:"total_parkings"`
	TotalCost       float64 `json:"total_cost"`
	TotalHours      float64 `json:"total_hours"`
	AverageCost     float64 `json:"average_cost"`
	AverageDuration float64 `json:"average_duration"`
	FavoriteLot     *string `json:"favorite_lot"`
}

// ComputeParkingStats aggregates completed reservations. Active ones are ignored.
// The favorite lot is the most used lot name; ties go to the lexicographically
// smallest name.
func ComputeParkingStats(reservations []ReservationDetail) ParkingStats {
	var (
		count     int
		totalCost float64
		totalHrs  float64
		usage     = make(map[string]int)
	)

	for i := range reservations {
		r := &reservations[i]
		if r.IsActive || r.LeavingTimestamp == nil {
			continue
		}
		count++
		totalCost += r.TotalCost
		totalHrs += r.DurationHours()
		usage[r.LotName]++
	}

	stats := ParkingStats{
		TotalParkings: count,
		TotalCost:     roundTo(totalCost, 2),
		TotalHours:    roundTo(totalHrs, 1),
	}
	if count == 0 {
		return stats
	}

	stats.AverageCost = roundTo(totalCost/float64(count), 2)
	stats.AverageDuration = roundTo(totalHrs/float64(count), 1)

	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)

	favorite := names[0]
	for _, name := range names[1:] {
		if usage[name] > usage[favorite] {
			favorite = name
		}
	}
	stats.FavoriteLot = &favorite

	return stats
}
