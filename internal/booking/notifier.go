package booking

import "context"

// Notifier delivers booking lifecycle notifications to the patient and
// doctor. It is invoked strictly after the allocation transaction has
// committed; delivery failures are logged and never change the outcome
// of the operation that triggered them.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *Booking) error
	BookingRescheduled(ctx context.Context, b *Booking) error
	BookingCancelled(ctx context.Context, b *Booking) error
}
