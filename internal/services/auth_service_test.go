package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeThrottle struct {
	blocked  error
	failures map[string]int
	resets   []string
}

func newFakeThrottle() *fakeThrottle {
	return &fakeThrottle{failures: make(map[string]int)}
}

func (f *fakeThrottle) CheckLoginAllowed(ctx context.Context, username, ip string) error {
	return f.blocked
}

func (f *fakeThrottle) RecordFailedLogin(ctx context.Context, username, ip string) error {
	f.failures[username]++
	return nil
}

func (f *fakeThrottle) ResetLoginAttempts(ctx context.Context, username string) error {
	f.resets = append(f.resets, username)
	return nil
}

var testMeta = RequestMeta{IPAddress: "203.0.113.10", UserAgent: "curl/8.4.0"}

func newAuthEnv(t *testing.T) (*AuthService, *memStore, *fakeThrottle) {
	t.Helper()
	store := newMemStore()
	throttle := newFakeThrottle()
	jwtService := jwt.NewService("test-session-secret-key-123456789", time.Hour)
	svc := NewAuthService(store, store, store, throttle, jwtService, bcrypt.MinCost, testLogger())
	return svc, store, throttle
}

func TestRegister(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.RegisterRequest{Username: " alice ", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	_, err = svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "other@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, models.ErrDuplicateUsername)

	_, err = svc.Register(ctx, models.RegisterRequest{Username: "alice2", Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newAuthEnv(t)

	tests := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"Short username", models.RegisterRequest{Username: "al", Email: "al@example.com", Password: "secret1"}},
		{"Bad email", models.RegisterRequest{Username: "alice", Email: "not-an-email", Password: "secret1"}},
		{"Short password", models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "12345"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			domainErr, ok := models.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, models.KindValidation, domainErr.Kind)
		})
	}
}

func TestLogin_UserSession(t *testing.T) {
	svc, _, throttle := newAuthEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, models.RoleUser, "alice", "secret1", testMeta)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, user.ID, resp.Identity.PrincipalID)
	assert.Equal(t, models.RoleUser, resp.Identity.Role)
	assert.Equal(t, []string{"alice"}, throttle.resets)

	identity, err := svc.ResolveSession(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Identity, identity)
	assert.True(t, identity.IsUser())

	require.NoError(t, svc.Logout(ctx, identity))

	_, err = svc.ResolveSession(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, models.ErrInvalidSession)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _, throttle := newAuthEnv(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.RoleUser, "alice", "wrong-password", testMeta)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.RoleUser, "nobody", "secret1", testMeta)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// user accounts cannot sign in through the admin login
	_, err = svc.Login(ctx, models.RoleAdmin, "alice", "secret1", testMeta)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	assert.Equal(t, 2, throttle.failures["alice"])
	assert.Equal(t, 1, throttle.failures["nobody"])
}

func TestLogin_Throttled(t *testing.T) {
	svc, _, throttle := newAuthEnv(t)
	throttle.blocked = &RateLimitError{Message: "Too many failed login attempts", RetryAfter: time.Now().Add(time.Minute), Type: "username"}

	_, err := svc.Login(context.Background(), models.RoleUser, "alice", "secret1", testMeta)
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "username", rateErr.Type)
}

func TestAdminLogin(t *testing.T) {
	svc, store, _ := newAuthEnv(t)
	ctx := context.Background()

	created, err := svc.EnsureDefaultAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureDefaultAdmin(ctx, "admin", "changed")
	require.NoError(t, err)
	assert.False(t, created)

	resp, err := svc.Login(ctx, models.RoleAdmin, "admin", "admin123", testMeta)
	require.NoError(t, err)
	assert.True(t, resp.Identity.IsAdmin())

	admin, err := store.GetAdminByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.NotNil(t, admin.LastLoginAt)

	// the admin is not a user account
	_, err = svc.Login(ctx, models.RoleUser, "admin", "admin123", testMeta)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestResolveSession_Errors(t *testing.T) {
	svc, _, _ := newAuthEnv(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	t.Run("Garbage token", func(t *testing.T) {
		_, err := svc.ResolveSession(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, models.ErrInvalidSession)
	})

	t.Run("Token signed by another secret", func(t *testing.T) {
		other := NewAuthService(svc.users, svc.admins, svc.sessions, nil,
			jwt.NewService("another-secret-key-987654321", time.Hour), bcrypt.MinCost, testLogger())
		resp, err := other.Login(ctx, models.RoleUser, "alice", "secret1", testMeta)
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, resp.AccessToken)
		assert.ErrorIs(t, err, models.ErrInvalidSession)
	})

	t.Run("Expired token", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		defer func() { svc.now = time.Now }()

		resp, err := svc.Login(ctx, models.RoleUser, "alice", "secret1", testMeta)
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, resp.AccessToken)
		assert.ErrorIs(t, err, models.ErrSessionExpired)
	})
}

// unfilteredSessions hands back stored sessions even when revoked or expired
type unfilteredSessions struct {
	*memStore
}

func (u unfilteredSessions) GetActiveSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	s, ok := u.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func TestResolveSession_RejectsRevokedRow(t *testing.T) {
	store := newMemStore()
	svc := NewAuthService(store, store, unfilteredSessions{store}, newFakeThrottle(),
		jwt.NewService("test-session-secret-key-123456789", time.Hour), bcrypt.MinCost, testLogger())
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, models.RoleUser, "alice", "secret1", testMeta)
	require.NoError(t, err)

	identity, err := svc.ResolveSession(ctx, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, store.RevokeSession(ctx, identity.SessionID))

	_, err = svc.ResolveSession(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, models.ErrInvalidSession)
}

func TestPurgeExpiredSessions(t *testing.T) {
	svc, store, _ := newAuthEnv(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	live, err := svc.Login(ctx, models.RoleUser, "alice", "secret1", testMeta)
	require.NoError(t, err)

	revoked, err := svc.Login(ctx, models.RoleUser, "alice", "secret1", testMeta)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, revoked.Identity))

	removed, err := svc.PurgeExpiredSessions(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok := store.sessions[live.Identity.SessionID]
	assert.True(t, ok)
}
