package doctor

import (
	"net/http"
	"strings"
	"time"

	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "doctor not found")
	ErrProfileExists     = apperror.New(http.StatusConflict, "account already has a doctor profile")
	ErrEmptyName         = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrEmptySpecialty    = apperror.New(http.StatusBadRequest, "specialty cannot be empty")
	ErrInvalidDate       = apperror.New(http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
	ErrInvalidTimeLabel  = apperror.New(http.StatusBadRequest, "invalid time slot label")
	ErrNoSlots           = apperror.New(http.StatusBadRequest, "at least one time slot is required")
	ErrSlotNotOffered    = apperror.New(http.StatusNotFound, "slot is not offered on that date")
	ErrHasActiveBookings = apperror.New(http.StatusConflict, "doctor still has active bookings")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, "permission denied")
)

// SlotGroup is one date with its ordered open time slots, the shape the
// catalog is advertised in over the API.
type SlotGroup struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// Doctor represents a doctor profile together with its current slot
// catalog projection. The catalog rows themselves live in their own table
// so bookings can withdraw and re-offer slots transactionally.
type Doctor struct {
	ID          string
	UserID      string
	Name        string
	Specialty   string
	PhotoFileID *string
	SlotGroups  []SlotGroup
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter defines parameters for listing doctors.
type Filter struct {
	Name      string
	Specialty string
	Page      int
	PageSize  int
}

const dateLayout = "2006-01-02"

// ValidateDate checks the YYYY-MM-DD slot date format.
func ValidateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateTimeLabel checks a slot label: either a start time ("09:00") or
// a range ("09:00-09:30"). Labels are compared by string equality only, so
// the format is the whole contract.
func ValidateTimeLabel(label string) error {
	parts := strings.Split(label, "-")
	if len(parts) > 2 {
		return ErrInvalidTimeLabel
	}
	for _, p := range parts {
		if _, err := time.Parse("15:04", p); err != nil {
			return ErrInvalidTimeLabel
		}
	}
	return nil
}

// NormalizeGroups validates a batch of slot groups and merges them:
// duplicate dates collapse into one group, labels are deduplicated within
// a date, and first-seen order is preserved for both dates and labels.
func NormalizeGroups(groups []SlotGroup) ([]SlotGroup, error) {
	var (
		order  []string
		byDate = make(map[string][]string)
		seen   = make(map[string]map[string]bool)
	)

	for _, g := range groups {
		if err := ValidateDate(g.Date); err != nil {
			return nil, err
		}
		if len(g.Slots) == 0 {
			return nil, ErrNoSlots
		}
		if _, ok := byDate[g.Date]; !ok {
			order = append(order, g.Date)
			seen[g.Date] = make(map[string]bool)
		}
		for _, label := range g.Slots {
			if err := ValidateTimeLabel(label); err != nil {
				return nil, err
			}
			if seen[g.Date][label] {
				continue
			}
			seen[g.Date][label] = true
			byDate[g.Date] = append(byDate[g.Date], label)
		}
	}

	out := make([]SlotGroup, 0, len(order))
	for _, date := range order {
		out = append(out, SlotGroup{Date: date, Slots: byDate[date]})
	}
	return out, nil
}
