// Package access holds the authorization decisions for bookings and
// doctor profiles. The rules live here in one place instead of being
// repeated inside every handler or service method.
package access

import (
	"context"
	"fmt"
)

// DoctorDirectory resolves which account owns a doctor profile.
// Implemented by the doctor repository.
type DoctorDirectory interface {
	OwnerOf(ctx context.Context, doctorID string) (string, error)
}

// Guard answers "may this caller act on this entity" questions.
// Identity resolution happens upstream (JWT middleware); the guard only
// ever sees already-resolved caller IDs.
type Guard struct {
	doctors DoctorDirectory
}

// NewGuard creates a Guard backed by the given doctor directory.
func NewGuard(doctors DoctorDirectory) *Guard {
	return &Guard{doctors: doctors}
}

// CanManageBooking reports whether the caller may modify or cancel a
// booking. Allowed parties: the booking's requester, or the account that
// owns the referenced doctor profile.
func (g *Guard) CanManageBooking(ctx context.Context, callerID, requesterID, doctorID string) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	if callerID == requesterID {
		return true, nil
	}

	ownerID, err := g.doctors.OwnerOf(ctx, doctorID)
	if err != nil {
		return false, fmt.Errorf("resolve doctor owner: %w", err)
	}
	return callerID == ownerID, nil
}

// CanManageDoctor reports whether the caller may edit or delete a doctor
// profile: only the owning account may.
func (g *Guard) CanManageDoctor(callerID, ownerID string) bool {
	return callerID != "" && callerID == ownerID
}
