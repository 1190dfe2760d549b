package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/metrics"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and session resolution for users and admins
type AuthService struct {
	users      UserStore
	admins     AdminStore
	sessions   SessionStore
	throttle   LoginThrottle
	jwtService *jwt.Service
	validate   *validator.Validate
	bcryptCost int
	logger     *logrus.Logger
	now        func() time.Time
}

// NewAuthService creates a new auth service. throttle may be nil to disable login throttling.
func NewAuthService(
	users UserStore,
	admins AdminStore,
	sessions SessionStore,
	throttle LoginThrottle,
	jwtService *jwt.Service,
	bcryptCost int,
	logger *logrus.Logger,
) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		admins:     admins,
		sessions:   sessions,
		throttle:   throttle,
		jwtService: jwtService,
		validate:   validator.New(),
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates a user account with a bcrypt-hashed password
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if len(username) < 3 || len(username) > 80 {
		return nil, models.NewValidationError("Username must be between 3 and 80 characters")
	}
	if err := s.validate.Var(email, "required,email,max=120"); err != nil {
		return nil, models.NewValidationError("Please enter a valid email address")
	}
	if len(req.Password) < 6 {
		return nil, models.NewValidationError("Password must be at least 6 characters")
	}
	if len(req.Password) > 72 {
		return nil, models.NewValidationError("Password must be at most 72 characters")
	}

	existing, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrDuplicateUsername
	}

	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// the unique constraints still decide concurrent registrations
	user, err := s.users.CreateUser(ctx, username, email, string(hash))
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	return user, nil
}

// Login authenticates a principal of the given role and opens a session
func (s *AuthService) Login(ctx context.Context, role models.Role, username, password string, meta RequestMeta) (*models.LoginResponse, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	username = strings.TrimSpace(username)

	if s.throttle != nil {
		if err := s.throttle.CheckLoginAllowed(ctx, username, meta.IPAddress); err != nil {
			return nil, err
		}
	}

	principalID, hash, err := s.lookupPrincipal(ctx, role, username)
	if err != nil {
		return nil, err
	}

	if principalID == 0 || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		metrics.RecordLogin(string(role), false)
		if s.throttle != nil {
			if err := s.throttle.RecordFailedLogin(ctx, username, meta.IPAddress); err != nil {
				s.logger.WithError(err).Warn("Failed to record failed login")
			}
		}
		return nil, models.ErrInvalidCredentials
	}

	if s.throttle != nil {
		if err := s.throttle.ResetLoginAttempts(ctx, username); err != nil {
			s.logger.WithError(err).Warn("Failed to reset login attempts")
		}
	}

	now := s.now()
	session := &models.Session{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Username:    username,
		Role:        role,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.jwtService.SessionExpiry()),
	}

	token, expiresAt, err := s.jwtService.GenerateSessionToken(principalID, username, string(role), session.ID, now)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt = expiresAt

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	if role == models.RoleAdmin {
		if err := s.admins.UpdateLastLogin(ctx, principalID); err != nil {
			s.logger.WithError(err).Warn("Failed to update admin last login")
		}
	}

	metrics.RecordLogin(string(role), true)
	s.logger.WithFields(logrus.Fields{
		"principal_id": principalID,
		"role":         role,
		"session_id":   session.ID,
		"ip":           meta.IPAddress,
	}).Info("Login successful")

	return &models.LoginResponse{
		Message:     "Login successful!",
		AccessToken: token,
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(expiresAt.Sub(now).Seconds()),
		Identity:    session.Identity(),
	}, nil
}

// lookupPrincipal returns a zero id when no account matches
func (s *AuthService) lookupPrincipal(ctx context.Context, role models.Role, username string) (int64, string, error) {
	if role == models.RoleAdmin {
		admin, err := s.admins.GetAdminByUsername(ctx, username)
		if err != nil || admin == nil {
			return 0, "", err
		}
		return admin.ID, admin.PasswordHash, nil
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil || user == nil {
		return 0, "", err
	}
	return user.ID, user.PasswordHash, nil
}

// ResolveSession validates a session token and returns the identity it stands for
func (s *AuthService) ResolveSession(ctx context.Context, token string) (models.Identity, error) {
	claims, err := s.jwtService.ValidateSessionToken(token)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return models.Identity{}, models.ErrSessionExpired
		}
		return models.Identity{}, models.ErrInvalidSession
	}

	session, err := s.sessions.GetActiveSession(ctx, claims.SessionID)
	if err != nil {
		return models.Identity{}, err
	}
	if session == nil || !session.IsActive(s.now()) {
		return models.Identity{}, models.ErrInvalidSession
	}
	if session.PrincipalID != claims.PrincipalID || string(session.Role) != claims.Role {
		return models.Identity{}, models.ErrInvalidSession
	}

	return session.Identity(), nil
}

// Logout revokes the caller's session
func (s *AuthService) Logout(ctx context.Context, identity models.Identity) error {
	if identity.SessionID == uuid.Nil {
		return nil
	}
	if err := s.sessions.RevokeSession(ctx, identity.SessionID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"principal_id": identity.PrincipalID,
		"session_id":   identity.SessionID,
	}).Info("Session revoked")
	return nil
}

// EnsureDefaultAdmin seeds the administrator account if it does not exist yet
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	created, err := s.admins.EnsureAdmin(ctx, username, string(hash))
	if err != nil {
		return false, err
	}

	if created {
		s.logger.WithField("username", username).Info("Default admin created")
	}
	return created, nil
}

// PurgeExpiredSessions deletes expired sessions and those revoked more than retention ago
func (s *AuthService) PurgeExpiredSessions(ctx context.Context, retention time.Duration) (int64, error) {
	return s.sessions.DeleteStaleSessions(ctx, s.now().Add(-retention))
}
