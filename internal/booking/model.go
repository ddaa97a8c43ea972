package booking

import (
	"net/http"
	"time"

	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrDoctorNotFound   = apperror.New(http.StatusNotFound, "doctor not found")
	ErrSlotUnavailable  = apperror.New(http.StatusConflict, "the requested time slot is not available")
	ErrBusy             = apperror.New(http.StatusServiceUnavailable, "the schedule is busy, please retry")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrInvalidStatus    = apperror.New(http.StatusBadRequest, "invalid booking status")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Slot identifies one bookable interval of a doctor: a date plus a time
// label, compared by string equality. It is the unit of exclusivity —
// at most one non-cancelled booking may hold a given
// (doctor, date, label) tuple at any time.
type Slot struct {
	Date  string
	Label string
}

// Booking is one row of the booking ledger, the authoritative record of
// who holds which slot.
type Booking struct {
	ID         string
	DoctorID   string
	DoctorName string
	UserID     string
	SlotDate   string
	TimeLabel  string
	Phone      *string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Slot returns the tuple this booking occupies.
func (b *Booking) Slot() Slot {
	return Slot{Date: b.SlotDate, Label: b.TimeLabel}
}

// Filter defines parameters for listing bookings.
type Filter struct {
	// VisibleTo restricts results to bookings the given account may see:
	// its own bookings plus bookings on a doctor profile it owns.
	VisibleTo string
	DoctorID  string
	Status    string
	Date      string
	Page      int
	PageSize  int
}
