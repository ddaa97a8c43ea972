package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/doctors")

	// Public reads: anyone may browse doctors and their open slots.
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.GET("/:id/photo", h.Photo)

	// Mutations require an authenticated caller.
	group.POST("", authMiddleware, h.Create)
	group.PATCH("/:id", authMiddleware, h.Update)
	group.DELETE("/:id", authMiddleware, h.Delete)
	group.PUT("/:id/photo", authMiddleware, h.UploadPhoto)
}
