package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/models"
)

// IdentityContextKey is the key used to store the caller identity in Gin context
const IdentityContextKey = "identity"

// SessionResolver turns a presented session token into a caller identity
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (models.Identity, error)
}

type tokenError struct {
	message string
	code    string
}

var (
	errMissingToken = &tokenError{message: "Authentication required. Please log in.", code: "MISSING_AUTH_HEADER"}
	errBadFormat    = &tokenError{message: "Invalid authorization header format. Expected: Bearer <token>", code: "INVALID_AUTH_FORMAT"}
	errEmptyToken   = &tokenError{message: "Token cannot be empty", code: "INVALID_AUTH_FORMAT"}
)

// extractToken reads a Bearer header first and falls back to the session cookie
func extractToken(c *gin.Context, cookieName string) (string, *tokenError) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errBadFormat
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", errEmptyToken
		}
		return token, nil
	}

	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			return cookie, nil
		}
	}

	return "", errMissingToken
}

// AuthMiddleware resolves the session token and stores the caller identity
func AuthMiddleware(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, tokErr := extractToken(c, cookieName)
		if tokErr != nil {
			logrus.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
				"code": tokErr.code,
			}).Warn("Authentication failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": tokErr.message,
				"code":    tokErr.code,
			})
			c.Abort()
			return
		}

		identity, err := resolver.ResolveSession(c.Request.Context(), token)
		if err != nil {
			abortSessionError(c, err)
			return
		}

		c.Set(IdentityContextKey, identity)
		c.Next()
	}
}

// OptionalAuth attaches an identity when a valid session is presented and never rejects
func OptionalAuth(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, tokErr := extractToken(c, cookieName)
		if tokErr == nil {
			if identity, err := resolver.ResolveSession(c.Request.Context(), token); err == nil {
				c.Set(IdentityContextKey, identity)
			}
		}
		c.Next()
	}
}

func abortSessionError(c *gin.Context, err error) {
	fields := logrus.Fields{
		"path":  c.Request.URL.Path,
		"ip":    c.ClientIP(),
		"error": err.Error(),
	}

	switch {
	case errors.Is(err, models.ErrSessionExpired):
		logrus.WithFields(fields).Info("Session expired")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "token_expired",
			"message": models.ErrSessionExpired.Message,
			"code":    models.ErrSessionExpired.Code,
		})
	case errors.Is(err, models.ErrInvalidSession):
		logrus.WithFields(fields).Warn("Invalid session token")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": models.ErrInvalidSession.Message,
			"code":    models.ErrInvalidSession.Code,
		})
	default:
		logrus.WithFields(fields).Error("Session lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Unable to verify session",
			"code":    "SESSION_LOOKUP_FAILED",
		})
	}
	c.Abort()
}

// RequireRole rejects callers whose identity does not carry the given role
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, exists := GetIdentity(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "User context not found. Auth middleware may not be applied.",
				"code":    "MISSING_USER_CONTEXT",
			})
			c.Abort()
			return
		}

		if err := identity.RequireRole(role); err != nil {
			logrus.WithFields(logrus.Fields{
				"path":          c.Request.URL.Path,
				"principal_id":  identity.PrincipalID,
				"role":          identity.Role,
				"required_role": role,
			}).Warn("Role check failed")
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": models.ErrForbidden.Message,
				"code":    models.ErrForbidden.Code,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetIdentity retrieves the caller identity from Gin context
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	value, exists := c.Get(IdentityContextKey)
	if !exists {
		return models.Identity{}, false
	}

	identity, ok := value.(models.Identity)
	if !ok {
		return models.Identity{}, false
	}

	return identity, true
}

