package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/config"
	"github.com/smartpark/parking-backend/internal/middleware"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/services"
)

// Authenticator is the auth service surface used by AuthHandler
type Authenticator interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, role models.Role, username, password string, meta services.RequestMeta) (*models.LoginResponse, error)
	Logout(ctx context.Context, identity models.Identity) error
}

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	auth    Authenticator
	audit   auditRecorder
	session config.SessionConfig
	logger  *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler. auditService may be nil.
func NewAuthHandler(auth Authenticator, auditService *services.AuditService, session config.SessionConfig, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		audit:   auditRecorder{service: auditService, logger: logger},
		session: session,
		logger:  logger,
	}
}

// Register handles POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"username": req.Username,
			"error":    err.Error(),
		}).Info("Registration rejected")
		respondError(c, h.logger, err)
		return
	}

	h.audit.registration(c.Request.Context(), user, requestMeta(c))

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful! Please log in.",
		"user":    user,
	})
}

// UserLogin handles POST /user/login
func (h *AuthHandler) UserLogin(c *gin.Context) {
	h.login(c, models.RoleUser)
}

// AdminLogin handles POST /admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, models.RoleAdmin)
}

func (h *AuthHandler) login(c *gin.Context, role models.Role) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	meta := requestMeta(c)

	resp, err := h.auth.Login(ctx, role, req.Username, req.Password, meta)
	if err != nil {
		var rateErr *services.RateLimitError
		switch {
		case errors.As(err, &rateErr):
			h.logger.WithFields(logrus.Fields{
				"username":   req.Username,
				"ip":         meta.IPAddress,
				"limit_type": rateErr.Type,
			}).Warn("Login throttled")
			h.audit.rateLimitViolation(ctx, req.Username, rateErr.Type, rateErr.RetryAfter, meta)
		case errors.Is(err, models.ErrInvalidCredentials):
			h.logger.WithFields(logrus.Fields{
				"username": req.Username,
				"role":     role,
				"ip":       meta.IPAddress,
			}).Warn("Login failed")
			h.audit.loginAttempt(ctx, role, req.Username, nil, false, models.ErrInvalidCredentials.Code, meta)
		}
		respondError(c, h.logger, err)
		return
	}

	principalID := resp.Identity.PrincipalID
	h.audit.loginAttempt(ctx, role, resp.Identity.Username, &principalID, true, "", meta)

	h.setSessionCookie(c, resp.AccessToken, resp.ExpiresAt)
	c.JSON(http.StatusOK, resp)
}

// Logout handles GET and POST /logout. Anonymous callers succeed too.
func (h *AuthHandler) Logout(c *gin.Context) {
	if identity, ok := middleware.GetIdentity(c); ok {
		if err := h.auth.Logout(c.Request.Context(), identity); err != nil {
			respondError(c, h.logger, err)
			return
		}
		h.audit.logout(c.Request.Context(), identity, requestMeta(c))
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, token, maxAge, "/", h.session.CookieDomain, h.session.CookieSecure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, "", -1, "/", h.session.CookieDomain, h.session.CookieSecure, true)
}
