package http

import (
	"time"

	"github.com/clinicdesk/clinic-booking-backend/internal/booking"
	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/request"
)

// CreateBookingRequest is the payload for POST /v1/appointments.
type CreateBookingRequest struct {
	DoctorID  string  `json:"doctor_id" binding:"required,uuid"`
	Date      string  `json:"date" binding:"required"`
	TimeSlot  string  `json:"time_slot" binding:"required"`
	Phone     *string `json:"phone"`
}

// UpdateBookingRequest is the payload for PATCH /v1/appointments/:id.
// Changing doctor_id, date or time_slot moves the booking to the new
// slot; phone alone only updates the contact number.
type UpdateBookingRequest struct {
	DoctorID *string `json:"doctor_id" binding:"omitempty,uuid"`
	Date     *string `json:"date"`
	TimeSlot *string `json:"time_slot"`
	Phone    *string `json:"phone"`
}

// ListBookingsRequest defines query parameters for GET /v1/appointments.
type ListBookingsRequest struct {
	request.ListParams
	DoctorID string `form:"doctor_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	Date     string `form:"date"`
}

// BookingResponse is the API shape of a booking.
type BookingResponse struct {
	ID         string    `json:"id"`
	DoctorID   string    `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"`
	TimeSlot   string    `json:"time_slot"`
	Phone      *string   `json:"phone,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewBookingResponse converts a domain booking.Booking to the API shape.
func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:         b.ID,
		DoctorID:   b.DoctorID,
		DoctorName: b.DoctorName,
		UserID:     b.UserID,
		Date:       b.SlotDate,
		TimeSlot:   b.TimeLabel,
		Phone:      b.Phone,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}
