package utils

import (
	"github.com/gin-gonic/gin"
)

// GetClientIP returns the caller address as resolved by gin.
// Forwarding headers only count when the direct peer is a trusted proxy
// (see gin.Engine.SetTrustedProxies); otherwise the socket address is used.
func GetClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// GetUserAgent extracts the User-Agent header from the request
func GetUserAgent(c *gin.Context) string {
	ua := c.Request.UserAgent()
	if ua == "" {
		return "Unknown"
	}
	return ua
}
