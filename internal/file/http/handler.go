package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-booking-backend/internal/file"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/apperror"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/response"
)

type Handler struct {
	service file.Service
}

func NewHandler(service file.Service) *Handler {
	return &Handler{service: service}
}

// Download streams the stored file content.
func (h *Handler) Download(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid file id"))
		return
	}

	body, meta, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", meta.ContentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

// DownloadThumbnail streams the file's thumbnail. Thumbnails are always
// JPEG regardless of the original's content type.
func (h *Handler) DownloadThumbnail(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, apperror.New(http.StatusBadRequest, "invalid file id"))
		return
	}

	body, _, err := h.service.DownloadThumbnail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}
