package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the appointment endpoints. Every route requires
// an authenticated caller; visibility and ownership checks happen in
// the service layer.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/appointments", authMiddleware)

	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PATCH("/:id", h.Update)
	group.DELETE("/:id", h.Cancel)
}
