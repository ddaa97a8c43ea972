// Package notify delivers booking lifecycle notifications. The current
// transport writes structured log events; swapping in email or SMS
// delivery only means providing another booking.Notifier.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-booking-backend/internal/booking"
)

type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) BookingConfirmed(ctx context.Context, b *booking.Booking) error {
	n.emit(ctx, "booking confirmed", b)
	return nil
}

func (n *LogNotifier) BookingRescheduled(ctx context.Context, b *booking.Booking) error {
	n.emit(ctx, "booking rescheduled", b)
	return nil
}

func (n *LogNotifier) BookingCancelled(ctx context.Context, b *booking.Booking) error {
	n.emit(ctx, "booking cancelled", b)
	return nil
}

func (n *LogNotifier) emit(ctx context.Context, event string, b *booking.Booking) {
	n.log.Info().
		Ctx(ctx).
		Str("booking_id", b.ID).
		Str("user_id", b.UserID).
		Str("doctor", b.DoctorName).
		Str("date", b.SlotDate).
		Str("time_slot", b.TimeLabel).
		Msg(event)
}
