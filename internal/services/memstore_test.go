package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/models"
)

var errStorage = errors.New("connection reset by peer")

// memStore is an in-memory stand-in for the PostgreSQL repositories
type memStore struct {
	mu sync.Mutex

	nextID       int64
	users        map[int64]*models.User
	admins       map[int64]*models.AdminUser
	sessions     map[uuid.UUID]*models.Session
	lots         map[int64]*models.ParkingLot
	spots        map[int64]*models.ParkingSpot
	reservations map[int64]*models.Reservation

	failSearch bool
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int64]*models.User),
		admins:       make(map[int64]*models.AdminUser),
		sessions:     make(map[uuid.UUID]*models.Session),
		lots:         make(map[int64]*models.ParkingLot),
		spots:        make(map[int64]*models.ParkingSpot),
		reservations: make(map[int64]*models.Reservation),
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// users

func (m *memStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, models.ErrDuplicateUsername
		}
		if u.Email == email {
			return nil, models.ErrDuplicateEmail
		}
	}
	user := &models.User{ID: m.id(), Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.users[user.ID] = user
	copied := *user
	return &copied, nil
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) EmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// admins

func (m *memStore) GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admins {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admins {
		if a.Username == username {
			return false, nil
		}
	}
	admin := &models.AdminUser{ID: m.id(), Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.admins[admin.ID] = admin
	return true, nil
}

func (m *memStore) UpdateLastLogin(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.admins[id]; ok {
		now := time.Now()
		a.LastLoginAt = &now
	}
	return nil
}

// sessions

func (m *memStore) CreateSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memStore) GetActiveSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.IsActive(time.Now()) {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *memStore) RevokeSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok && s.RevokedAt == nil {
		now := time.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (m *memStore) DeleteStaleSessions(ctx context.Context, revokedBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	now := time.Now()
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(now) || (s.RevokedAt != nil && s.RevokedAt.Before(revokedBefore)) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// lots

func (m *memStore) CreateLotWithSpots(ctx context.Context, lot *models.ParkingLot) (*models.ParkingLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := *lot
	created.ID = m.id()
	created.CreatedAt = time.Now()
	m.lots[created.ID] = &created

	for n := 1; n <= created.MaximumSpots; n++ {
		spot := &models.ParkingSpot{ID: m.id(), LotID: created.ID, SpotNumber: n, Status: models.SpotAvailable}
		m.spots[spot.ID] = spot
	}

	result := created
	return &result, nil
}

func (m *memStore) summaryLocked(lot *models.ParkingLot) models.LotSummary {
	summary := models.LotSummary{ParkingLot: *lot}
	for _, s := range m.spots {
		if s.LotID != lot.ID {
			continue
		}
		summary.TotalSpots++
		if s.Status == models.SpotOccupied {
			summary.OccupiedSpots++
		}
	}
	summary.AvailableSpots = summary.TotalSpots - summary.OccupiedSpots
	return summary
}

func (m *memStore) GetLotSummary(ctx context.Context, lotID int64) (*models.LotSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lot, ok := m.lots[lotID]
	if !ok {
		return nil, models.ErrLotNotFound
	}
	summary := m.summaryLocked(lot)
	return &summary, nil
}

func (m *memStore) ListLotSummaries(ctx context.Context) ([]models.LotSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make([]models.LotSummary, 0, len(m.lots))
	for _, lot := range m.lots {
		summaries = append(summaries, m.summaryLocked(lot))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

func (m *memStore) ListAvailableLots(ctx context.Context) ([]models.LotSummary, error) {
	all, _ := m.ListLotSummaries(ctx)
	available := make([]models.LotSummary, 0, len(all))
	for _, s := range all {
		if s.AvailableSpots > 0 {
			available = append(available, s)
		}
	}
	return available, nil
}

func (m *memStore) ListSpotOccupancy(ctx context.Context, lotID int64) ([]models.SpotOccupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []models.SpotOccupancy
	for _, s := range m.spots {
		if s.LotID != lotID {
			continue
		}
		row := models.SpotOccupancy{SpotID: s.ID, SpotNumber: s.SpotNumber, Status: s.Status}
		for _, r := range m.reservations {
			if r.SpotID == s.ID && r.IsActive {
				id := r.ID
				vehicle := r.VehicleNumber
				parked := r.ParkingTimestamp
				username := m.users[r.UserID].Username
				row.ReservationID = &id
				row.VehicleNumber = &vehicle
				row.ParkingTimestamp = &parked
				row.Username = &username
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SpotNumber < rows[j].SpotNumber })
	return rows, nil
}

func (m *memStore) DeleteLot(ctx context.Context, lotID int64) (*models.DeleteLotResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lots[lotID]; !ok {
		return nil, models.ErrLotNotFound
	}
	for _, s := range m.spots {
		if s.LotID == lotID && s.Status == models.SpotOccupied {
			return nil, models.ErrLotOccupied
		}
	}

	result := &models.DeleteLotResult{LotID: lotID}
	for spotID, s := range m.spots {
		if s.LotID != lotID {
			continue
		}
		for resID, r := range m.reservations {
			if r.SpotID == spotID {
				delete(m.reservations, resID)
				result.ReservationsDeleted++
			}
		}
		delete(m.spots, spotID)
		result.SpotsDeleted++
	}
	delete(m.lots, lotID)
	return result, nil
}

// reservations

func (m *memStore) detailLocked(r *models.Reservation) models.ReservationDetail {
	spot := m.spots[r.SpotID]
	lot := m.lots[spot.LotID]
	return models.ReservationDetail{
		Reservation:  *r,
		SpotNumber:   spot.SpotNumber,
		LotID:        lot.ID,
		LotName:      lot.LocationName,
		LotAddress:   lot.Address,
		PricePerHour: lot.PricePerHour,
	}
}

func (m *memStore) BookFirstAvailable(ctx context.Context, userID, lotID int64, vehicleNumber string, parkedAt time.Time) (*models.ReservationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lots[lotID]; !ok {
		return nil, models.ErrLotNotFound
	}
	for _, r := range m.reservations {
		if r.UserID == userID && r.IsActive {
			return nil, models.ErrAlreadyParked
		}
	}

	var chosen *models.ParkingSpot
	for _, s := range m.spots {
		if s.LotID != lotID || s.Status != models.SpotAvailable {
			continue
		}
		if chosen == nil || s.SpotNumber < chosen.SpotNumber {
			chosen = s
		}
	}
	if chosen == nil {
		return nil, models.ErrLotFull
	}

	chosen.Status = models.SpotOccupied
	r := &models.Reservation{
		ID:               m.id(),
		SpotID:           chosen.ID,
		UserID:           userID,
		VehicleNumber:    vehicleNumber,
		ParkingTimestamp: parkedAt,
		IsActive:         true,
	}
	m.reservations[r.ID] = r

	detail := m.detailLocked(r)
	return &detail, nil
}

func (m *memStore) ReleaseReservation(ctx context.Context, reservationID, userID int64, leftAt time.Time) (*models.ReservationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[reservationID]
	if !ok {
		return nil, models.ErrReservationNotFound
	}
	if r.UserID != userID {
		return nil, models.ErrNotOwner
	}
	if !r.IsActive {
		return nil, models.ErrReservationClosed
	}

	lot := m.lots[m.spots[r.SpotID].LotID]
	left := leftAt
	r.LeavingTimestamp = &left
	r.TotalCost = models.ComputeParkingCost(r.ParkingTimestamp, leftAt, lot.PricePerHour)
	r.IsActive = false
	m.spots[r.SpotID].Status = models.SpotAvailable

	detail := m.detailLocked(r)
	return &detail, nil
}

func (m *memStore) GetActiveReservation(ctx context.Context, userID int64) (*models.ReservationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.reservations {
		if r.UserID == userID && r.IsActive {
			detail := m.detailLocked(r)
			return &detail, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListCompletedReservations(ctx context.Context, userID int64, limit int) ([]models.ReservationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var history []models.ReservationDetail
	for _, r := range m.reservations {
		if r.UserID == userID && !r.IsActive {
			history = append(history, m.detailLocked(r))
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].LeavingTimestamp.After(*history[j].LeavingTimestamp)
	})
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// search

func (m *memStore) FindSpotsByNumber(ctx context.Context, spotNumber int) ([]models.SpotSearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSearch {
		return nil, errStorage
	}
	var results []models.SpotSearchResult
	for _, s := range m.spots {
		if s.SpotNumber != spotNumber {
			continue
		}
		lot := m.lots[s.LotID]
		results = append(results, models.SpotSearchResult{
			SpotID: s.ID, SpotNumber: s.SpotNumber, Status: s.Status,
			LotID: lot.ID, LotName: lot.LocationName, LotAddress: lot.Address, PricePerHour: lot.PricePerHour,
		})
	}
	return results, nil
}

func (m *memStore) FindActiveByVehicle(ctx context.Context, fragment string) ([]models.VehicleSearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSearch {
		return nil, errStorage
	}
	var results []models.VehicleSearchResult
	for _, r := range m.reservations {
		if !r.IsActive || !strings.Contains(r.VehicleNumber, fragment) {
			continue
		}
		spot := m.spots[r.SpotID]
		lot := m.lots[spot.LotID]
		user := m.users[r.UserID]
		results = append(results, models.VehicleSearchResult{
			ReservationID: r.ID, VehicleNumber: r.VehicleNumber, ParkingTimestamp: r.ParkingTimestamp,
			SpotID: spot.ID, SpotNumber: spot.SpotNumber, LotID: lot.ID, LotName: lot.LocationName,
			UserID: user.ID, Username: user.Username, Email: user.Email,
		})
	}
	return results, nil
}

func (m *memStore) FindLotsByLocation(ctx context.Context, fragment string) ([]models.ParkingLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSearch {
		return nil, errStorage
	}
	var results []models.ParkingLot
	for _, lot := range m.lots {
		if strings.Contains(lot.LocationName, fragment) {
			results = append(results, *lot)
		}
	}
	return results, nil
}
