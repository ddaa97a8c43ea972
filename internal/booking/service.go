package booking

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-booking-backend/internal/access"
	"github.com/clinicdesk/clinic-booking-backend/internal/doctor"
)

type CreateRequest struct {
	CallerID string
	DoctorID string
	Date     string
	TimeSlot string
	Phone    *string
}

type UpdateRequest struct {
	DoctorID *string
	Date     *string
	TimeSlot *string
	Phone    *string
}

// Service is the allocation engine: the only entry point through which
// bookings are created, moved and cancelled. Every mutation goes through
// one atomic repository operation, so the slot catalog and the booking
// ledger can never drift apart.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id, callerID string) (*Booking, error)
	List(ctx context.Context, callerID string, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, id, callerID string, req UpdateRequest) (*Booking, error)
	Cancel(ctx context.Context, id, callerID string) error
}

type service struct {
	repo     Repository
	guard    *access.Guard
	notifier Notifier
	log      zerolog.Logger

	notifyTimeout time.Duration
}

// NewService creates the allocation engine.
func NewService(repo Repository, guard *access.Guard, notifier Notifier, log zerolog.Logger) Service {
	return &service{
		repo:          repo,
		guard:         guard,
		notifier:      notifier,
		log:           log,
		notifyTimeout: 5 * time.Second,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if err := doctor.ValidateDate(req.Date); err != nil {
		return nil, err
	}
	if err := doctor.ValidateTimeLabel(req.TimeSlot); err != nil {
		return nil, err
	}

	b := &Booking{
		DoctorID:  req.DoctorID,
		UserID:    req.CallerID,
		SlotDate:  req.Date,
		TimeLabel: req.TimeSlot,
		Phone:     req.Phone,
		Status:    StatusConfirmed,
	}

	if err := s.repo.Allocate(ctx, b); err != nil {
		return nil, err
	}

	s.notifyAfterCommit("confirmation", b, s.notifier.BookingConfirmed)
	return b, nil
}

func (s *service) GetByID(ctx context.Context, id, callerID string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.guard.CanManageBooking(ctx, callerID, b.UserID, b.DoctorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermissionDenied
	}

	return b, nil
}

func (s *service) List(ctx context.Context, callerID string, filter Filter) ([]*Booking, int, error) {
	// Callers only ever see their own bookings plus bookings held
	// against a doctor profile they own.
	filter.VisibleTo = callerID
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id, callerID string, req UpdateRequest) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.guard.CanManageBooking(ctx, callerID, b.UserID, b.DoctorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermissionDenied
	}

	if b.Status == StatusCancelled {
		return nil, ErrInvalidStatus
	}

	oldDoctorID := b.DoctorID
	oldSlot := b.Slot()

	tupleChanged := false
	if req.DoctorID != nil && *req.DoctorID != b.DoctorID {
		b.DoctorID = *req.DoctorID
		tupleChanged = true
	}
	if req.Date != nil && *req.Date != b.SlotDate {
		if err := doctor.ValidateDate(*req.Date); err != nil {
			return nil, err
		}
		b.SlotDate = *req.Date
		tupleChanged = true
	}
	if req.TimeSlot != nil && *req.TimeSlot != b.TimeLabel {
		if err := doctor.ValidateTimeLabel(*req.TimeSlot); err != nil {
			return nil, err
		}
		b.TimeLabel = *req.TimeSlot
		tupleChanged = true
	}
	if req.Phone != nil {
		b.Phone = req.Phone
	}

	if !tupleChanged {
		if req.Phone == nil {
			return b, nil
		}
		return s.repo.UpdateContact(ctx, id, req.Phone)
	}

	if err := s.repo.Reallocate(ctx, b, oldDoctorID, oldSlot); err != nil {
		return nil, err
	}

	s.notifyAfterCommit("reschedule", b, s.notifier.BookingRescheduled)
	return b, nil
}

func (s *service) Cancel(ctx context.Context, id, callerID string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.guard.CanManageBooking(ctx, callerID, b.UserID, b.DoctorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}

	cancelled, released, err := s.repo.Release(ctx, id)
	if err != nil {
		return err
	}

	// A repeat cancel is a no-op success; only the first release
	// notifies, since only the first one changed anything.
	if released {
		s.notifyAfterCommit("cancellation", cancelled, s.notifier.BookingCancelled)
	}
	return nil
}

// notifyAfterCommit fires a notification outside the allocation
// transaction and outside the caller's request lifetime. Failures are
// surfaced as warnings only.
func (s *service) notifyAfterCommit(event string, b *Booking, deliver func(context.Context, *Booking) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := deliver(ctx, b); err != nil {
			s.log.Warn().
				Err(err).
				Str("booking_id", b.ID).
				Str("event", event).
				Msg("booking notification failed")
		}
	}()
}
