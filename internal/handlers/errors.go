package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/middleware"
	"github.com/smartpark/parking-backend/internal/models"
	"github.com/smartpark/parking-backend/internal/services"
	"github.com/smartpark/parking-backend/internal/utils"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// statusForKind maps a domain error kind to its HTTP status
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindAuth:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict, models.KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error body for err and logs unexpected failures
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var rateErr *services.RateLimitError
	if errors.As(err, &rateErr) {
		retryAfter := int(math.Ceil(time.Until(rateErr.RetryAfter).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limit_exceeded",
			"message":     rateErr.Message,
			"code":        "RATE_LIMIT_EXCEEDED",
			"retry_after": retryAfter,
		})
		return
	}

	if domainErr, ok := models.AsDomainError(err); ok {
		c.JSON(statusForKind(domainErr.Kind), ErrorResponse{
			Error:   string(domainErr.Kind),
			Message: domainErr.Message,
			Code:    domainErr.Code,
		})
		return
	}

	logger.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"error":  err.Error(),
	}).Error("Request failed")
	_ = c.Error(err)

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An unexpected error occurred. Please try again.",
		Code:    "INTERNAL_ERROR",
	})
}

// respondBindingError reports a request that failed gin binding or validation tags
func respondBindingError(c *gin.Context, err error) {
	message := "Invalid request body"

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		message = describeFieldError(validationErrs[0])
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(models.KindValidation),
		Message: message,
		Code:    "INVALID_REQUEST",
	})
}

func describeFieldError(fe validator.FieldError) string {
	field := toSnakeCase(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "vehicle":
		return "Vehicle number can only contain letters, digits, spaces and dashes (max 20)"
	case "pincode":
		return "Pin code must be 4 to 10 digits"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// requireIdentity returns the caller identity or writes a 401
func requireIdentity(c *gin.Context, logger *logrus.Logger) (models.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		respondError(c, logger, models.ErrInvalidSession)
		return models.Identity{}, false
	}
	return identity, true
}

// parseIDParam parses a positive integer path parameter
func parseIDParam(c *gin.Context, name, label string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError(fmt.Sprintf("Invalid %s", label))
	}
	return id, nil
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: utils.GetClientIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
}
