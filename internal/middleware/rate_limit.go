package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/utils"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter applies a token bucket per client IP
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewClientRateLimiter creates a limiter allowing requestsPerSecond with the given burst
func NewClientRateLimiter(requestsPerSecond float64, burst int) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *ClientRateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = rl.now()

	return entry.limiter
}

// Allow reports whether the client identified by key may proceed
func (rl *ClientRateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Handler returns the gin middleware enforcing the per-IP limit
func (rl *ClientRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := utils.GetClientIP(c)
		if rl.Allow(key) {
			c.Next()
			return
		}

		retryAfter := 1
		if rl.rate > 0 {
			retryAfter = int(math.Ceil(1 / float64(rl.rate)))
		}

		logrus.WithFields(logrus.Fields{
			"ip":     key,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Warn("Rate limit exceeded")

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limit_exceeded",
			"message":     "Too many requests. Please slow down.",
			"code":        "RATE_LIMIT_EXCEEDED",
			"retry_after": retryAfter,
		})
		c.Abort()
	}
}

// Cleanup drops limiters idle for longer than maxIdle and returns how many were removed
func (rl *ClientRateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked clients
func (rl *ClientRateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
