package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines storage operations for the booking ledger. The
// mutating operations are atomic: each one moves the slot catalog and
// the ledger together inside a single transaction, so no caller can
// ever observe a slot withdrawn without its booking or vice versa.
type Repository interface {
	// Allocate withdraws the booking's slot from the catalog and inserts
	// the booking as confirmed, or fails with no state change.
	Allocate(ctx context.Context, b *Booking) error

	// Reallocate moves a booking to a new (doctor, date, label) tuple:
	// the new slot is withdrawn, the old one re-offered and the ledger
	// row rewritten, all in one transaction. On failure the old booking
	// and both catalogs are untouched.
	Reallocate(ctx context.Context, b *Booking, oldDoctorID string, old Slot) error

	// Release cancels the booking and re-offers its slot. Cancelling an
	// already-cancelled booking reports released=false and is not an
	// error, so retried cancels stay idempotent and the slot is
	// re-offered exactly once.
	Release(ctx context.Context, id string) (b *Booking, released bool, err error)

	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	UpdateContact(ctx context.Context, id string, phone *string) (*Booking, error)
}

type pgxRepository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPgxRepository creates a Repository backed by Postgres. lockTimeout
// bounds how long a mutation waits for a doctor's allocation scope
// before failing with ErrBusy.
func NewPgxRepository(pool *pgxpool.Pool, lockTimeout time.Duration) Repository {
	return &pgxRepository{
		pool:        pool,
		lockTimeout: lockTimeout,
	}
}

func (r *pgxRepository) Allocate(ctx context.Context, b *Booking) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// The doctor row lock is the per-doctor mutual-exclusion scope: every
	// catalog or ledger mutation for this doctor serializes on it.
	if err := lockDoctor(ctx, tx, b.DoctorID, &b.DoctorName); err != nil {
		return err
	}

	// Both views are checked: the slot must still be offered in the
	// catalog AND the tuple must be free in the ledger. Either view can
	// regress independently, so neither check alone is sufficient.
	if err := withdrawOffer(ctx, tx, b.DoctorID, b.Slot()); err != nil {
		return err
	}
	free, err := tupleFree(ctx, tx, b.DoctorID, b.Slot(), "")
	if err != nil {
		return err
	}
	if !free {
		return ErrSlotUnavailable
	}

	const ins = `
		INSERT INTO public.bookings (doctor_id, user_id, slot_date, time_label, phone, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, ins, b.DoctorID, b.UserID, b.SlotDate, b.TimeLabel, b.Phone, b.Status).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapAllocationErr(err, "insert booking")
	}

	if err := bumpDoctor(ctx, tx, b.DoctorID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapAllocationErr(err, "commit allocation")
	}
	return nil
}

func (r *pgxRepository) Reallocate(ctx context.Context, b *Booking, oldDoctorID string, old Slot) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Lock every involved doctor in id order so two concurrent moves
	// between the same pair of doctors cannot deadlock.
	doctorIDs := []string{b.DoctorID}
	if oldDoctorID != b.DoctorID {
		doctorIDs = append(doctorIDs, oldDoctorID)
		if doctorIDs[0] > doctorIDs[1] {
			doctorIDs[0], doctorIDs[1] = doctorIDs[1], doctorIDs[0]
		}
	}
	for _, id := range doctorIDs {
		var name string
		if err := lockDoctor(ctx, tx, id, &name); err != nil {
			return err
		}
		if id == b.DoctorID {
			b.DoctorName = name
		}
	}

	if err := withdrawOffer(ctx, tx, b.DoctorID, b.Slot()); err != nil {
		return err
	}
	free, err := tupleFree(ctx, tx, b.DoctorID, b.Slot(), b.ID)
	if err != nil {
		return err
	}
	if !free {
		return ErrSlotUnavailable
	}

	if err := reofferSlot(ctx, tx, oldDoctorID, old); err != nil {
		return err
	}

	const upd = `
		UPDATE public.bookings
		SET doctor_id = $1, slot_date = $2, time_label = $3, phone = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`
	if err := tx.QueryRow(ctx, upd, b.DoctorID, b.SlotDate, b.TimeLabel, b.Phone, b.ID).
		Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapAllocationErr(err, "update booking")
	}

	for _, id := range doctorIDs {
		if err := bumpDoctor(ctx, tx, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapAllocationErr(err, "commit reallocation")
	}
	return nil
}

func (r *pgxRepository) Release(ctx context.Context, id string) (*Booking, bool, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	// Resolve the doctor first so the row lock is taken in the same
	// doctor-then-booking order as every other mutation.
	var doctorID string
	if err := tx.QueryRow(ctx, `SELECT doctor_id FROM public.bookings WHERE id = $1`, id).
		Scan(&doctorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, mapAllocationErr(err, "resolve booking doctor")
	}

	var b Booking
	if err := lockDoctor(ctx, tx, doctorID, &b.DoctorName); err != nil {
		return nil, false, err
	}

	const sel = `
		SELECT id, doctor_id, user_id, slot_date, time_label, phone, status, created_at, updated_at
		FROM public.bookings
		WHERE id = $1
		FOR UPDATE
	`
	if err := tx.QueryRow(ctx, sel, id).Scan(
		&b.ID, &b.DoctorID, &b.UserID, &b.SlotDate, &b.TimeLabel,
		&b.Phone, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, mapAllocationErr(err, "get booking for release")
	}

	if b.Status == StatusCancelled {
		// Already released; nothing to re-offer.
		return &b, false, tx.Commit(ctx)
	}

	const upd = `
		UPDATE public.bookings
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := tx.QueryRow(ctx, upd, id).Scan(&b.UpdatedAt); err != nil {
		return nil, false, mapAllocationErr(err, "cancel booking")
	}
	b.Status = StatusCancelled

	if err := reofferSlot(ctx, tx, b.DoctorID, b.Slot()); err != nil {
		return nil, false, err
	}

	if err := bumpDoctor(ctx, tx, b.DoctorID); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, mapAllocationErr(err, "commit release")
	}
	return &b, true, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	const query = `
		SELECT b.id, b.doctor_id, d.name, b.user_id, b.slot_date, b.time_label,
		       b.phone, b.status, b.created_at, b.updated_at
		FROM public.bookings b
		JOIN public.doctors d ON b.doctor_id = d.id
		WHERE b.id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)

	var b Booking
	if err := row.Scan(
		&b.ID, &b.DoctorID, &b.DoctorName, &b.UserID, &b.SlotDate, &b.TimeLabel,
		&b.Phone, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return &b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"b.id", "b.doctor_id", "d.name", "b.user_id", "b.slot_date", "b.time_label",
		"b.phone", "b.status", "b.created_at", "b.updated_at",
		"count(*) OVER() AS total_count",
	).
		From("public.bookings b").
		Join("public.doctors d ON b.doctor_id = d.id")

	if filter.VisibleTo != "" {
		query = query.Where(squirrel.Or{
			squirrel.Eq{"b.user_id": filter.VisibleTo},
			squirrel.Eq{"d.user_id": filter.VisibleTo},
		})
	}
	if filter.DoctorID != "" {
		query = query.Where(squirrel.Eq{"b.doctor_id": filter.DoctorID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	if filter.Date != "" {
		query = query.Where(squirrel.Eq{"b.slot_date": filter.Date})
	}

	query = query.OrderBy("b.slot_date DESC", "b.time_label DESC")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int

	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID, &b.DoctorID, &b.DoctorName, &b.UserID, &b.SlotDate, &b.TimeLabel,
			&b.Phone, &b.Status, &b.CreatedAt, &b.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, &b)
	}

	return bookings, total, nil
}

func (r *pgxRepository) UpdateContact(ctx context.Context, id string, phone *string) (*Booking, error) {
	const query = `
		UPDATE public.bookings
		SET phone = $1, updated_at = now()
		WHERE id = $2
	`

	ct, err := r.pool.Exec(ctx, query, phone, id)
	if err != nil {
		return nil, fmt.Errorf("update booking contact failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// begin opens a transaction with the configured lock wait bound applied,
// so contended allocations fail fast with ErrBusy instead of queueing
// indefinitely.
func (r *pgxRepository) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction failed: %w", err)
	}

	lockStmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, lockStmt); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("set lock_timeout failed: %w", err)
	}

	return tx, nil
}

func lockDoctor(ctx context.Context, tx pgx.Tx, doctorID string, name *string) error {
	err := tx.QueryRow(ctx, `SELECT name FROM public.doctors WHERE id = $1 FOR UPDATE`, doctorID).Scan(name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDoctorNotFound
		}
		return mapAllocationErr(err, "lock doctor")
	}
	return nil
}

func withdrawOffer(ctx context.Context, tx pgx.Tx, doctorID string, s Slot) error {
	const del = `
		DELETE FROM public.slot_offers
		WHERE doctor_id = $1 AND slot_date = $2 AND time_label = $3
	`
	ct, err := tx.Exec(ctx, del, doctorID, s.Date, s.Label)
	if err != nil {
		return mapAllocationErr(err, "withdraw slot offer")
	}
	if ct.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

func reofferSlot(ctx context.Context, tx pgx.Tx, doctorID string, s Slot) error {
	const ins = `
		INSERT INTO public.slot_offers (doctor_id, slot_date, time_label)
		VALUES ($1, $2, $3)
		ON CONFLICT (doctor_id, slot_date, time_label) DO NOTHING
	`
	if _, err := tx.Exec(ctx, ins, doctorID, s.Date, s.Label); err != nil {
		return mapAllocationErr(err, "re-offer slot")
	}
	return nil
}

func tupleFree(ctx context.Context, tx pgx.Tx, doctorID string, s Slot, excludeBookingID string) (bool, error) {
	query := `
		SELECT NOT EXISTS (
			SELECT 1 FROM public.bookings
			WHERE doctor_id = $1 AND slot_date = $2 AND time_label = $3
			  AND status <> 'cancelled'
	`
	args := []any{doctorID, s.Date, s.Label}
	if excludeBookingID != "" {
		query += " AND id <> $4"
		args = append(args, excludeBookingID)
	}
	query += ")"

	var free bool
	if err := tx.QueryRow(ctx, query, args...).Scan(&free); err != nil {
		return false, mapAllocationErr(err, "check ledger tuple")
	}
	return free, nil
}

func bumpDoctor(ctx context.Context, tx pgx.Tx, doctorID string) error {
	if _, err := tx.Exec(ctx, `UPDATE public.doctors SET updated_at = now() WHERE id = $1`, doctorID); err != nil {
		return mapAllocationErr(err, "bump doctor updated_at")
	}
	return nil
}

// mapAllocationErr translates store-level failures into the domain
// taxonomy: a lock wait timeout is transient contention (ErrBusy), a
// unique violation on the active-tuple index means another writer won
// the slot (ErrSlotUnavailable).
func mapAllocationErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.LockNotAvailable:
			return ErrBusy
		case pgerrcode.UniqueViolation:
			return ErrSlotUnavailable
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrBusy
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
