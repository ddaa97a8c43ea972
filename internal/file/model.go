package file

import (
	"net/http"
	"time"

	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound    = apperror.New(http.StatusNotFound, "file not found")
	ErrNotImage    = apperror.New(http.StatusBadRequest, "only image uploads are accepted")
	ErrTooLarge    = apperror.New(http.StatusRequestEntityTooLarge, "uploaded file is too large")
	ErrNoThumbnail = apperror.New(http.StatusNotFound, "no thumbnail available for this file")
)

// File is the metadata record of one stored upload. The blob itself
// lives in storage under StoragePath.
type File struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Filename      string    `json:"filename"`
	StoragePath   string    `json:"-"`
	ThumbnailPath *string   `json:"-"`
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	CreatedAt     time.Time `json:"created_at"`
}

// FileURL returns the public URL serving the file's content.
func FileURL(id string) string {
	return "/v1/files/" + id
}

// ThumbnailURL returns the public URL serving the file's thumbnail.
func ThumbnailURL(id string) string {
	return "/v1/files/" + id + "/thumbnail"
}
