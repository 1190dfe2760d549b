package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/config"
	"github.com/smartpark/parking-backend/internal/database"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/services"
	"github.com/smartpark/parking-backend/pkg/jwt"
)

// Runs one full parking lifecycle against the configured database.
// The lot it creates is deleted again at the end.
func main() {
	fmt.Println("🧪 SmartPark Services Smoke Test")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("✅ Database connected")

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	users := database.NewUserRepository(db)
	lots := database.NewParkingLotRepository(db)
	reservations := database.NewReservationRepository(db)

	auth := services.NewAuthService(
		users,
		database.NewAdminUserRepository(db),
		database.NewSessionRepository(db),
		nil,
		jwt.NewService(cfg.JWT.Secret, cfg.JWT.SessionExpiry),
		cfg.Security.BcryptCost,
		logger,
	)
	audit := services.NewAuditService(db, true)
	lotService := services.NewLotService(lots, users, cfg.Parking.MaxSpotsPerLot, logger)
	booking := services.NewBookingService(reservations, logger)
	search := services.NewSearchService(database.NewSearchRepository(db), logger)
	stats := services.NewStatsService(reservations, lots)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	meta := services.RequestMeta{IPAddress: "127.0.0.1", UserAgent: "smoke-test"}
	suffix := uuid.NewString()[:8]

	step("Seed administrator", func() error {
		_, err := auth.EnsureDefaultAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
		return err
	})

	var admin models.Identity
	step("Admin login", func() error {
		resp, err := auth.Login(ctx, models.RoleAdmin, cfg.Admin.Username, cfg.Admin.Password, meta)
		if err != nil {
			return err
		}
		admin, err = auth.ResolveSession(ctx, resp.AccessToken)
		return err
	})

	step("Register user", func() error {
		user, err := auth.Register(ctx, models.RegisterRequest{
			Username: "smoke_" + suffix,
			Email:    "smoke_" + suffix + "@example.com",
			Password: "smoke-pass",
		})
		if err != nil {
			return err
		}
		return audit.LogRegistration(ctx, user, meta)
	})

	var user models.Identity
	step("User login", func() error {
		resp, err := auth.Login(ctx, models.RoleUser, "smoke_"+suffix, "smoke-pass", meta)
		if err != nil {
			return err
		}
		user, err = auth.ResolveSession(ctx, resp.AccessToken)
		return err
	})

	var lot *models.ParkingLot
	price := 10.0
	step("Create lot", func() error {
		lot, err = lotService.CreateLot(ctx, admin, models.CreateLotRequest{
			Name:         "Smoke Lot " + suffix,
			PricePerHour: &price,
			Address:      "1 Test Street",
			PinCode:      "560001",
			MaxSpots:     2,
		})
		if err != nil {
			return err
		}
		return audit.LogLotCreated(ctx, admin, lot, meta)
	})

	var reservation *models.ReservationDetail
	step("Book spot", func() error {
		reservation, err = booking.BookSpot(ctx, user, lot.ID, "SMOKE "+suffix)
		if err != nil {
			return err
		}
		fmt.Printf("  spot %d in %s\n", reservation.SpotNumber, reservation.LotName)
		return audit.LogSpotBooked(ctx, user, reservation, meta)
	})

	step("Search by vehicle", func() error {
		results, err := search.AdminSearch(ctx, admin, "vehicle", "SMOKE "+suffix)
		if err != nil {
			return err
		}
		if results.Count != 1 {
			return fmt.Errorf("expected 1 active vehicle, got %d", results.Count)
		}
		return nil
	})

	step("Release spot", func() error {
		released, err := booking.ReleaseSpot(ctx, user, reservation.ID)
		if err != nil {
			return err
		}
		fmt.Printf("  total cost %.2f\n", released.TotalCost)
		return audit.LogSpotReleased(ctx, user, released, meta)
	})

	step("User stats", func() error {
		s, err := stats.UserStats(ctx, user)
		if err != nil {
			return err
		}
		fmt.Printf("  %d parkings, %.2f spent\n", s.TotalParkings, s.TotalCost)
		return nil
	})

	step("Delete lot", func() error {
		result, err := lotService.DeleteLot(ctx, admin, lot.ID)
		if err != nil {
			return err
		}
		return audit.LogLotDeleted(ctx, admin, result, meta)
	})

	step("Logout", func() error {
		if err := auth.Logout(ctx, user); err != nil {
			return err
		}
		return auth.Logout(ctx, admin)
	})

	fmt.Println()
	fmt.Println("✅ Smoke test completed successfully!")
}

func step(name string, fn func() error) {
	if err := fn(); err != nil {
		log.Fatalf("❌ %s: %v", name, err)
	}
	fmt.Printf("✅ %s\n", name)
}
