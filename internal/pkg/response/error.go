package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/apperror"
)

// Error sends a JSON failure envelope.
// If the error is an AppError the status code comes from it,
// otherwise it defaults to 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, gin.H{
			"success": false,
			"message": appErr.Message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "internal server error",
	})
}
