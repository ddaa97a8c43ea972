package auth

import "github.com/gin-gonic/gin"

// GetCallerID returns the authenticated caller's user ID or empty string.
func GetCallerID(c *gin.Context) string {
	if v, ok := c.Get("callerID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
