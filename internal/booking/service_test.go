package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/clinic-booking-backend/internal/access"
	"github.com/clinicdesk/clinic-booking-backend/internal/doctor"
)

type tuple struct {
	doctorID string
	date     string
	label    string
}

type fakeDoctor struct {
	ownerID string
	name    string
}

// fakeRepo mirrors the store's atomicity contract in memory: one mutex
// guards both the catalog and the ledger, so every mutation moves them
// together or not at all.
type fakeRepo struct {
	mu      sync.Mutex
	doctors map[string]fakeDoctor
	catalog map[tuple]bool
	ledger  map[string]*Booking
	nextID  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		doctors: make(map[string]fakeDoctor),
		catalog: make(map[tuple]bool),
		ledger:  make(map[string]*Booking),
	}
}

func (f *fakeRepo) addDoctor(id, ownerID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doctors[id] = fakeDoctor{ownerID: ownerID, name: name}
}

func (f *fakeRepo) offer(doctorID, date, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog[tuple{doctorID, date, label}] = true
}

func (f *fakeRepo) offered(doctorID, date, label string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.catalog[tuple{doctorID, date, label}]
}

func (f *fakeRepo) tupleHeld(doctorID string, s Slot, excludeID string) bool {
	for _, b := range f.ledger {
		if b.ID == excludeID || b.Status == StatusCancelled {
			continue
		}
		if b.DoctorID == doctorID && b.SlotDate == s.Date && b.TimeLabel == s.Label {
			return true
		}
	}
	return false
}

func (f *fakeRepo) Allocate(_ context.Context, b *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.doctors[b.DoctorID]
	if !ok {
		return ErrDoctorNotFound
	}

	key := tuple{b.DoctorID, b.SlotDate, b.TimeLabel}
	if !f.catalog[key] || f.tupleHeld(b.DoctorID, b.Slot(), "") {
		return ErrSlotUnavailable
	}
	delete(f.catalog, key)

	f.nextID++
	b.ID = fmt.Sprintf("booking-%d", f.nextID)
	b.DoctorName = d.name
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt

	stored := *b
	f.ledger[b.ID] = &stored
	return nil
}

func (f *fakeRepo) Reallocate(_ context.Context, b *Booking, oldDoctorID string, old Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.doctors[b.DoctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	if _, ok := f.ledger[b.ID]; !ok {
		return ErrNotFound
	}

	key := tuple{b.DoctorID, b.SlotDate, b.TimeLabel}
	if !f.catalog[key] || f.tupleHeld(b.DoctorID, b.Slot(), b.ID) {
		return ErrSlotUnavailable
	}
	delete(f.catalog, key)
	f.catalog[tuple{oldDoctorID, old.Date, old.Label}] = true

	b.DoctorName = d.name
	b.UpdatedAt = time.Now()
	stored := *b
	f.ledger[b.ID] = &stored
	return nil
}

func (f *fakeRepo) Release(_ context.Context, id string) (*Booking, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.ledger[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if b.Status == StatusCancelled {
		out := *b
		return &out, false, nil
	}

	b.Status = StatusCancelled
	b.UpdatedAt = time.Now()
	f.catalog[tuple{b.DoctorID, b.SlotDate, b.TimeLabel}] = true

	out := *b
	return &out, true, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.ledger[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *b
	return &out, nil
}

func (f *fakeRepo) List(_ context.Context, filter Filter) ([]*Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*Booking
	for _, b := range f.ledger {
		if filter.VisibleTo != "" {
			owner := f.doctors[b.DoctorID].ownerID
			if b.UserID != filter.VisibleTo && owner != filter.VisibleTo {
				continue
			}
		}
		if filter.DoctorID != "" && b.DoctorID != filter.DoctorID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		if filter.Date != "" && b.SlotDate != filter.Date {
			continue
		}
		out := *b
		result = append(result, &out)
	}
	return result, len(result), nil
}

func (f *fakeRepo) UpdateContact(_ context.Context, id string, phone *string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.ledger[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Phone = phone
	b.UpdatedAt = time.Now()
	out := *b
	return &out, nil
}

// OwnerOf lets fakeRepo double as the access guard's doctor directory.
func (f *fakeRepo) OwnerOf(_ context.Context, doctorID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.doctors[doctorID]
	if !ok {
		return "", ErrDoctorNotFound
	}
	return d.ownerID, nil
}

type notifyEvent struct {
	kind      string
	bookingID string
}

type recordingNotifier struct {
	events chan notifyEvent
	err    error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(chan notifyEvent, 16)}
}

func (n *recordingNotifier) record(kind string, b *Booking) error {
	n.events <- notifyEvent{kind: kind, bookingID: b.ID}
	return n.err
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, b *Booking) error {
	return n.record("confirmed", b)
}

func (n *recordingNotifier) BookingRescheduled(_ context.Context, b *Booking) error {
	return n.record("rescheduled", b)
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, b *Booking) error {
	return n.record("cancelled", b)
}

func (n *recordingNotifier) waitEvent(t *testing.T) notifyEvent {
	t.Helper()
	select {
	case ev := <-n.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return notifyEvent{}
	}
}

func (n *recordingNotifier) assertNoEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-n.events:
		t.Fatalf("unexpected notification: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestService(repo *fakeRepo, notifier Notifier) Service {
	return NewService(repo, access.NewGuard(repo), notifier, zerolog.Nop())
}

func TestCreateAllocatesSlot(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	b, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1",
		DoctorID: "doc-1",
		Date:     "2026-09-01",
		TimeSlot: "09:00",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, "Dr. Chen", b.DoctorName)

	assert.False(t, repo.offered("doc-1", "2026-09-01", "09:00"),
		"allocated slot must leave the catalog")

	ev := notifier.waitEvent(t)
	assert.Equal(t, "confirmed", ev.kind)
	assert.Equal(t, b.ID, ev.bookingID)
}

func TestCreateValidatesSlotIdentity(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	_, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1",
		DoctorID: "doc-1",
		Date:     "01/09/2026",
		TimeSlot: "09:00",
	})
	assert.ErrorIs(t, err, doctor.ErrInvalidDate)

	_, err = svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1",
		DoctorID: "doc-1",
		Date:     "2026-09-01",
		TimeSlot: "9am",
	})
	assert.ErrorIs(t, err, doctor.ErrInvalidTimeLabel)

	notifier.assertNoEvent(t)
}

func TestCreateUnofferedSlotFails(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	_, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1",
		DoctorID: "doc-1",
		Date:     "2026-09-01",
		TimeSlot: "09:00",
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	const workers = 16
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateRequest{
				CallerID: fmt.Sprintf("patient-%d", i),
				DoctorID: "doc-1",
				Date:     "2026-09-01",
				TimeSlot: "09:00",
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, won, "exactly one racer may win the slot")
}

func TestCancelReleasesSlotOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	b, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1",
		DoctorID: "doc-1",
		Date:     "2026-09-01",
		TimeSlot: "09:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)

	require.NoError(t, svc.Cancel(context.Background(), b.ID, "patient-1"))
	assert.True(t, repo.offered("doc-1", "2026-09-01", "09:00"),
		"cancelled slot must return to the catalog")
	ev := notifier.waitEvent(t)
	assert.Equal(t, "cancelled", ev.kind)

	// Mark the tuple as held again so a double release would be visible
	// as a spurious re-offer.
	repo.mu.Lock()
	delete(repo.catalog, tuple{"doc-1", "2026-09-01", "09:00"})
	repo.mu.Unlock()

	require.NoError(t, svc.Cancel(context.Background(), b.ID, "patient-1"))
	assert.False(t, repo.offered("doc-1", "2026-09-01", "09:00"),
		"repeat cancel must not re-offer the slot again")
	notifier.assertNoEvent(t)
}

func TestUpdateMovesBooking(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.addDoctor("doc-2", "owner-2", "Dr. Okafor")
	repo.offer("doc-1", "2026-09-01", "09:00")
	repo.offer("doc-2", "2026-09-02", "14:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	b, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1",
		DoctorID: "doc-1",
		Date:     "2026-09-01",
		TimeSlot: "09:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)

	newDoctor, newDate, newLabel := "doc-2", "2026-09-02", "14:00"
	moved, err := svc.Update(context.Background(), b.ID, "patient-1", UpdateRequest{
		DoctorID: &newDoctor,
		Date:     &newDate,
		TimeSlot: &newLabel,
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-2", moved.DoctorID)
	assert.Equal(t, "Dr. Okafor", moved.DoctorName)

	assert.True(t, repo.offered("doc-1", "2026-09-01", "09:00"),
		"vacated slot must be re-offered")
	assert.False(t, repo.offered("doc-2", "2026-09-02", "14:00"))

	ev := notifier.waitEvent(t)
	assert.Equal(t, "rescheduled", ev.kind)
}

func TestUpdateToOccupiedSlotFailsAtomically(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	repo.offer("doc-1", "2026-09-01", "10:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	first, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)

	second, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-2", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "10:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)

	taken := "09:00"
	_, err = svc.Update(context.Background(), second.ID, "patient-2", UpdateRequest{
		TimeSlot: &taken,
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// The failed move must leave the booking exactly where it was.
	unchanged, err := svc.GetByID(context.Background(), second.ID, "patient-2")
	require.NoError(t, err)
	assert.Equal(t, "10:00", unchanged.TimeLabel)
	assert.Equal(t, first.TimeLabel, "09:00")
	notifier.assertNoEvent(t)
}

func TestUpdatePhoneOnly(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	b, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)

	phone := "+1-555-0100"
	updated, err := svc.Update(context.Background(), b.ID, "patient-1", UpdateRequest{Phone: &phone})
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, phone, *updated.Phone)
	assert.Equal(t, "09:00", updated.TimeLabel, "contact change must not touch the slot")
	notifier.assertNoEvent(t)
}

func TestUpdateCancelledBookingRejected(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	b, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)
	require.NoError(t, svc.Cancel(context.Background(), b.ID, "patient-1"))
	notifier.waitEvent(t)

	label := "10:00"
	_, err = svc.Update(context.Background(), b.ID, "patient-1", UpdateRequest{TimeSlot: &label})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAccessControl(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	repo.offer("doc-1", "2026-09-01", "10:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	b, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)

	_, err = svc.GetByID(context.Background(), b.ID, "stranger")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	label := "10:00"
	_, err = svc.Update(context.Background(), b.ID, "stranger", UpdateRequest{TimeSlot: &label})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = svc.Cancel(context.Background(), b.ID, "stranger")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// The doctor profile's owner may act on the booking too.
	_, err = svc.GetByID(context.Background(), b.ID, "owner-1")
	assert.NoError(t, err)
	assert.NoError(t, svc.Cancel(context.Background(), b.ID, "owner-1"))
	notifier.waitEvent(t)
}

func TestListScopedToCaller(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	repo.offer("doc-1", "2026-09-01", "10:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	_, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-2", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "10:00",
	})
	require.NoError(t, err)

	mine, _, err := svc.List(context.Background(), "patient-1", Filter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	// The doctor's owner sees every booking on their profile.
	all, _, err := svc.List(context.Background(), "owner-1", Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, _, err := svc.List(context.Background(), "stranger", Filter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNotifierFailureDoesNotAffectBooking(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	notifier := newRecordingNotifier()
	notifier.err = errors.New("smtp down")
	svc := newTestService(repo, notifier)

	b, err := svc.Create(context.Background(), CreateRequest{
		CallerID: "patient-1", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)

	got, err := svc.GetByID(context.Background(), b.ID, "patient-1")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestSlotLifecycle(t *testing.T) {
	repo := newFakeRepo()
	repo.addDoctor("doc-1", "owner-1", "Dr. Chen")
	repo.offer("doc-1", "2026-09-01", "09:00")
	notifier := newRecordingNotifier()
	svc := newTestService(repo, notifier)

	ctx := context.Background()

	first, err := svc.Create(ctx, CreateRequest{
		CallerID: "patient-1", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	notifier.waitEvent(t)

	_, err = svc.Create(ctx, CreateRequest{
		CallerID: "patient-2", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	require.NoError(t, svc.Cancel(ctx, first.ID, "patient-1"))
	notifier.waitEvent(t)

	second, err := svc.Create(ctx, CreateRequest{
		CallerID: "patient-2", DoctorID: "doc-1", Date: "2026-09-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "patient-2", second.UserID)
	notifier.waitEvent(t)
}
