package response

import "github.com/gin-gonic/gin"

// Success sends the standard success envelope: a success flag, a
// human-readable message and any payload fields merged at the top level.
func Success(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}
