package services

import (
	"context"
	"testing"

	"github.com/smartpark/parking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLot(t *testing.T) {
	env := newParkingEnv(t)
	ctx := context.Background()

	lot := env.newLot(t, "  Central Plaza ", 12.5, 4)
	assert.Equal(t, "Central Plaza", lot.LocationName)
	assert.Equal(t, 4, lot.MaximumSpots)

	detail, err := env.lots.ViewLot(ctx, env.admin, lot.ID)
	require.NoError(t, err)
	require.Len(t, detail.Spots, 4)
	for i, spot := range detail.Spots {
		assert.Equal(t, i+1, spot.SpotNumber)
		assert.Equal(t, models.SpotAvailable, spot.Status)
		assert.Nil(t, spot.ReservationID)
	}
	assert.Equal(t, 4, detail.Lot.AvailableSpots)
}

func TestCreateLot_Validation(t *testing.T) {
	env := newParkingEnv(t)
	ctx := context.Background()

	priceOf := func(v float64) *float64 { return &v }
	valid := models.CreateLotRequest{Name: "Lot", PricePerHour: priceOf(5), Address: "Road 1", PinCode: "560001", MaxSpots: 3}

	tests := []struct {
		name   string
		mutate func(r *models.CreateLotRequest)
	}{
		{"Missing name", func(r *models.CreateLotRequest) { r.Name = "  " }},
		{"Missing address", func(r *models.CreateLotRequest) { r.Address = "" }},
		{"Missing price", func(r *models.CreateLotRequest) { r.PricePerHour = nil }},
		{"Negative price", func(r *models.CreateLotRequest) { r.PricePerHour = priceOf(-1) }},
		{"Zero spots", func(r *models.CreateLotRequest) { r.MaxSpots = 0 }},
		{"Too many spots", func(r *models.CreateLotRequest) { r.MaxSpots = 1001 }},
		{"Bad pin code", func(r *models.CreateLotRequest) { r.PinCode = "12a" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			_, err := env.lots.CreateLot(ctx, env.admin, req)
			domainErr, ok := models.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, models.KindValidation, domainErr.Kind)
		})
	}

	t.Run("Free parking is allowed", func(t *testing.T) {
		req := valid
		req.PricePerHour = priceOf(0)
		_, err := env.lots.CreateLot(ctx, env.admin, req)
		assert.NoError(t, err)
	})

	t.Run("Users cannot create lots", func(t *testing.T) {
		user := env.newUser(t, "mallory")
		_, err := env.lots.CreateLot(ctx, user, valid)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestDeleteLot(t *testing.T) {
	env := newParkingEnv(t)
	ctx := context.Background()

	lot := env.newLot(t, "Temporary", 3, 2)
	alice := env.newUser(t, "alice")

	reservation, err := env.booking.BookSpot(ctx, alice, lot.ID, "KA01AB1234")
	require.NoError(t, err)

	_, err = env.lots.DeleteLot(ctx, env.admin, lot.ID)
	assert.ErrorIs(t, err, models.ErrLotOccupied)

	_, err = env.booking.ReleaseSpot(ctx, alice, reservation.ID)
	require.NoError(t, err)

	_, err = env.lots.DeleteLot(ctx, alice, lot.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	result, err := env.lots.DeleteLot(ctx, env.admin, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, result.LotID)
	assert.Equal(t, int64(2), result.SpotsDeleted)
	assert.Equal(t, int64(1), result.ReservationsDeleted)

	_, err = env.lots.DeleteLot(ctx, env.admin, lot.ID)
	assert.ErrorIs(t, err, models.ErrLotNotFound)

	_, err = env.lots.ViewLot(ctx, env.admin, lot.ID)
	assert.ErrorIs(t, err, models.ErrLotNotFound)

	history, err := env.stats.UserStats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, history.TotalParkings)
}

func TestViewLot_ShowsOccupant(t *testing.T) {
	env := newParkingEnv(t)
	ctx := context.Background()

	lot := env.newLot(t, "Library", 2, 2)
	alice := env.newUser(t, "alice")

	_, err := env.booking.BookSpot(ctx, alice, lot.ID, "KA01AB1234")
	require.NoError(t, err)

	detail, err := env.lots.ViewLot(ctx, env.admin, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Lot.OccupiedSpots)

	occupied := detail.Spots[0]
	assert.Equal(t, models.SpotOccupied, occupied.Status)
	require.NotNil(t, occupied.Username)
	assert.Equal(t, "alice", *occupied.Username)
	require.NotNil(t, occupied.VehicleNumber)
	assert.Equal(t, "KA01AB1234", *occupied.VehicleNumber)

	assert.Nil(t, detail.Spots[1].Username)

	_, err = env.lots.ViewLot(ctx, alice, lot.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAdminDashboard(t *testing.T) {
	env := newParkingEnv(t)
	ctx := context.Background()

	env.newLot(t, "One", 1, 1)
	env.newLot(t, "Two", 2, 2)
	env.newUser(t, "alice")
	env.newUser(t, "bob")

	dashboard, err := env.lots.AdminDashboard(ctx, env.admin)
	require.NoError(t, err)
	assert.Len(t, dashboard.Lots, 2)
	assert.Len(t, dashboard.Users, 2)
	assert.Equal(t, 2, dashboard.Lots[1].TotalSpots)
}
