package http

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts public file downloads. Uploads happen through
// the owning resource's endpoints, not here.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	group := g.Group("/files")

	group.GET("/:id", h.Download)
	group.GET("/:id/thumbnail", h.DownloadThumbnail)
}
