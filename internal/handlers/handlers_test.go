package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/middleware"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/services"
	"github.com/stretchr/testify/require"
)

var (
	testUser  = models.Identity{PrincipalID: 7, Username: "alice", Role: models.RoleUser, SessionID: uuid.New()}
	testAdmin = models.Identity{PrincipalID: 1, Username: "admin", Role: models.RoleAdmin, SessionID: uuid.New()}
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// withIdentity stands in for AuthMiddleware in handler tests
func withIdentity(identity *models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity != nil {
			c.Set(middleware.IdentityContextKey, *identity)
		}
		c.Next()
	}
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type stubAuth struct {
	registerFn func(req models.RegisterRequest) (*models.User, error)
	loginFn    func(role models.Role, username, password string) (*models.LoginResponse, error)
	loggedOut  []models.Identity
	logoutErr  error
}

func (s *stubAuth) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	return s.registerFn(req)
}

func (s *stubAuth) Login(ctx context.Context, role models.Role, username, password string, meta services.RequestMeta) (*models.LoginResponse, error) {
	return s.loginFn(role, username, password)
}

func (s *stubAuth) Logout(ctx context.Context, identity models.Identity) error {
	if s.logoutErr != nil {
		return s.logoutErr
	}
	s.loggedOut = append(s.loggedOut, identity)
	return nil
}

type stubLots struct {
	created   *models.CreateLotRequest
	createErr error
	deleteErr error
	viewErr   error
}

func (s *stubLots) CreateLot(ctx context.Context, identity models.Identity, req models.CreateLotRequest) (*models.ParkingLot, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = &req
	return &models.ParkingLot{
		ID:           11,
		LocationName: req.Name,
		PricePerHour: *req.PricePerHour,
		Address:      req.Address,
		PinCode:      req.PinCode,
		MaximumSpots: req.MaxSpots,
		CreatedAt:    time.Now(),
	}, nil
}

func (s *stubLots) DeleteLot(ctx context.Context, identity models.Identity, lotID int64) (*models.DeleteLotResult, error) {
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	return &models.DeleteLotResult{LotID: lotID, SpotsDeleted: 4, ReservationsDeleted: 2}, nil
}

func (s *stubLots) ViewLot(ctx context.Context, identity models.Identity, lotID int64) (*models.LotDetail, error) {
	if s.viewErr != nil {
		return nil, s.viewErr
	}
	return &models.LotDetail{
		Lot: models.LotSummary{ParkingLot: models.ParkingLot{ID: lotID, LocationName: "Central"}, TotalSpots: 2, AvailableSpots: 2},
		Spots: []models.SpotOccupancy{
			{SpotID: 1, SpotNumber: 1, Status: models.SpotAvailable},
			{SpotID: 2, SpotNumber: 2, Status: models.SpotAvailable},
		},
	}, nil
}

func (s *stubLots) AdminDashboard(ctx context.Context, identity models.Identity) (*models.AdminDashboard, error) {
	if err := identity.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}
	return &models.AdminDashboard{
		Lots:  []models.LotSummary{{ParkingLot: models.ParkingLot{ID: 1, LocationName: "Central"}}},
		Users: []models.User{{ID: 7, Username: "alice"}},
	}, nil
}

type stubSearch struct {
	gotType  string
	gotQuery string
	err      error
}

func (s *stubSearch) AdminSearch(ctx context.Context, identity models.Identity, searchType, query string) (*models.SearchResults, error) {
	s.gotType, s.gotQuery = searchType, query
	if s.err != nil {
		return nil, s.err
	}
	return &models.SearchResults{
		SearchType: models.SearchByLocation,
		Query:      query,
		Count:      1,
		Lots:       []models.ParkingLot{{ID: 3, LocationName: "Beach Road"}},
	}, nil
}

type stubBooking struct {
	bookErr    error
	releaseErr error
	vehicle    string
	lotID      int64
}

func (s *stubBooking) BookSpot(ctx context.Context, identity models.Identity, lotID int64, vehicleNumber string) (*models.ReservationDetail, error) {
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	s.lotID, s.vehicle = lotID, vehicleNumber
	return &models.ReservationDetail{
		Reservation: models.Reservation{ID: 21, UserID: identity.PrincipalID, VehicleNumber: vehicleNumber, IsActive: true},
		SpotNumber:  3,
		LotID:       lotID,
	}, nil
}

func (s *stubBooking) ReleaseSpot(ctx context.Context, identity models.Identity, reservationID int64) (*models.ReservationDetail, error) {
	if s.releaseErr != nil {
		return nil, s.releaseErr
	}
	left := time.Now()
	return &models.ReservationDetail{
		Reservation: models.Reservation{ID: reservationID, LeavingTimestamp: &left, TotalCost: 12.5},
		SpotNumber:  3,
	}, nil
}

type stubStats struct {
	err error
}

func (s *stubStats) UserStats(ctx context.Context, identity models.Identity) (*models.ParkingStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	favorite := "Beach"
	return &models.ParkingStats{TotalParkings: 3, TotalCost: 27, TotalHours: 3, AverageCost: 9, AverageDuration: 1, FavoriteLot: &favorite}, nil
}

func (s *stubStats) UserDashboard(ctx context.Context, identity models.Identity) (*models.UserDashboard, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.UserDashboard{
		RecentReservations: []models.ReservationDetail{},
		AvailableLots:      []models.LotSummary{},
	}, nil
}
