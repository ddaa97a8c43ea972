package http

import (
	"time"

	"github.com/clinicdesk/clinic-booking-backend/internal/doctor"
	"github.com/clinicdesk/clinic-booking-backend/internal/file"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/request"
)

// CreateDoctorRequest is the payload for POST /v1/doctors.
type CreateDoctorRequest struct {
	Name           string             `json:"name" binding:"required"`
	Specialty      string             `json:"specialty" binding:"required"`
	AvailableSlots []doctor.SlotGroup `json:"available_slots"`
}

// UpdateDoctorRequest is the payload for PATCH /v1/doctors/:id.
// available_slots entries are merged into the catalog as new offers.
type UpdateDoctorRequest struct {
	Name           *string            `json:"name"`
	Specialty      *string            `json:"specialty"`
	AvailableSlots []doctor.SlotGroup `json:"available_slots"`
}

// WithdrawSlotsRequest is the optional body for DELETE /v1/doctors/:id.
// When present, only the listed slots are withdrawn instead of removing
// the whole profile.
type WithdrawSlotsRequest struct {
	Date  string   `json:"date" binding:"required"`
	Slots []string `json:"slots" binding:"required,min=1"`
}

// ListDoctorsRequest defines query parameters for GET /v1/doctors.
type ListDoctorsRequest struct {
	request.ListParams
	Name      string `form:"name"`
	Specialty string `form:"specialty"`
}

// DoctorResponse is the API shape of a doctor profile with its catalog.
type DoctorResponse struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Specialty         string             `json:"specialty"`
	AvailableSlots    []doctor.SlotGroup `json:"available_slots"`
	PhotoURL          *string            `json:"photo_url,omitempty"`
	PhotoThumbnailURL *string            `json:"photo_thumbnail_url,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewDoctorResponse converts a domain doctor.Doctor to the API shape.
func NewDoctorResponse(d *doctor.Doctor) DoctorResponse {
	slots := d.SlotGroups
	if slots == nil {
		slots = make([]doctor.SlotGroup, 0)
	}

	var photoURL, thumbnailURL *string
	if d.PhotoFileID != nil {
		u := file.FileURL(*d.PhotoFileID)
		photoURL = &u
		tu := file.ThumbnailURL(*d.PhotoFileID)
		thumbnailURL = &tu
	}

	return DoctorResponse{
		ID:                d.ID,
		Name:              d.Name,
		Specialty:         d.Specialty,
		AvailableSlots:    slots,
		PhotoURL:          photoURL,
		PhotoThumbnailURL: thumbnailURL,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}
