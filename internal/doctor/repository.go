package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines storage operations for doctor profiles and their
// slot catalog. Offer and Withdraw take the doctor row lock so catalog
// mutations serialize with the booking allocation transactions.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id string) (*Doctor, error)
	GetByUserID(ctx context.Context, userID string) (*Doctor, error)
	List(ctx context.Context, filter Filter) ([]*Doctor, int, error)
	UpdateProfile(ctx context.Context, d *Doctor) error
	SetPhotoFile(ctx context.Context, id string, fileID *string) error
	Delete(ctx context.Context, id string) error

	Offer(ctx context.Context, doctorID string, groups []SlotGroup) error
	Withdraw(ctx context.Context, doctorID, date string, labels []string) error

	// OwnerOf satisfies access.DoctorDirectory.
	OwnerOf(ctx context.Context, doctorID string) (string, error)
}

// slotGroupsSubquery projects the slot_offers rows of a doctor into the
// ordered [{date, slots}] JSON shape. Group order follows the earliest
// offer position within each date, label order follows offer position.
const slotGroupsSubquery = `
	COALESCE(
		(
			SELECT json_agg(json_build_object('date', s.slot_date, 'slots', s.labels) ORDER BY s.first_pos)
			FROM (
				SELECT slot_date,
				       min(position) AS first_pos,
				       json_agg(time_label ORDER BY position) AS labels
				FROM public.slot_offers
				WHERE doctor_id = d.id
				GROUP BY slot_date
			) s
		),
		'[]'::json
	)
`

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new Repository implementation using pgxpool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, d *Doctor) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create doctor failed: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO public.doctors (user_id, name, specialty)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(ctx, query, d.UserID, d.Name, d.Specialty).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrProfileExists
		}
		return fmt.Errorf("create doctor failed: %w", err)
	}

	if err := insertOffers(ctx, tx, d.ID, d.SlotGroups); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	query := `
		SELECT d.id, d.user_id, d.name, d.specialty, d.photo_file_id,
		       d.created_at, d.updated_at, ` + slotGroupsSubquery + ` AS slot_groups
		FROM public.doctors d
		WHERE d.id = $1
	`

	return scanDoctor(r.pool.QueryRow(ctx, query, id))
}

func (r *pgxRepository) GetByUserID(ctx context.Context, userID string) (*Doctor, error) {
	query := `
		SELECT d.id, d.user_id, d.name, d.specialty, d.photo_file_id,
		       d.created_at, d.updated_at, ` + slotGroupsSubquery + ` AS slot_groups
		FROM public.doctors d
		WHERE d.user_id = $1
	`

	return scanDoctor(r.pool.QueryRow(ctx, query, userID))
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Doctor, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"d.id", "d.user_id", "d.name", "d.specialty", "d.photo_file_id",
		"d.created_at", "d.updated_at",
		slotGroupsSubquery+" AS slot_groups",
		"count(*) OVER() AS total_count",
	).From("public.doctors d")

	if filter.Name != "" {
		query = query.Where(squirrel.ILike{"d.name": "%" + filter.Name + "%"})
	}
	if filter.Specialty != "" {
		query = query.Where(squirrel.ILike{"d.specialty": "%" + filter.Specialty + "%"})
	}

	query = query.OrderBy("d.created_at DESC")

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
		return nil, 0, fmt.Errorf("build list doctors query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors failed: %w", err)
	}
	defer rows.Close()

	var doctors []*Doctor
	var total int

	for rows.Next() {
		var d Doctor
		var groupsJSON []byte
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Name, &d.Specialty, &d.PhotoFileID,
			&d.CreatedAt, &d.UpdatedAt, &groupsJSON, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan doctor failed: %w", err)
		}
		if err := json.Unmarshal(groupsJSON, &d.SlotGroups); err != nil {
			return nil, 0, fmt.Errorf("unmarshal slot groups for doctor %s failed: %w", d.ID, err)
		}
		doctors = append(doctors, &d)
	}

	return doctors, total, nil
}

func (r *pgxRepository) UpdateProfile(ctx context.Context, d *Doctor) error {
	const query = `
		UPDATE public.doctors
		SET name = $1, specialty = $2, updated_at = now()
		WHERE id = $3
	`

	ct, err := r.pool.Exec(ctx, query, d.Name, d.Specialty, d.ID)
	if err != nil {
		return fmt.Errorf("update doctor failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) SetPhotoFile(ctx context.Context, id string, fileID *string) error {
	const query = `
		UPDATE public.doctors
		SET photo_file_id = $1, updated_at = now()
		WHERE id = $2
	`

	ct, err := r.pool.Exec(ctx, query, fileID, id)
	if err != nil {
		return fmt.Errorf("set doctor photo failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete doctor failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize with allocations so no booking can commit between the
	// active check and the delete.
	if err := lockDoctor(ctx, tx, id); err != nil {
		return err
	}

	var hasActive bool
	const activeQuery = `
		SELECT EXISTS (
			SELECT 1 FROM public.bookings
			WHERE doctor_id = $1 AND status <> 'cancelled'
		)
	`
	if err := tx.QueryRow(ctx, activeQuery, id).Scan(&hasActive); err != nil {
		return fmt.Errorf("check active bookings failed: %w", err)
	}
	if hasActive {
		return ErrHasActiveBookings
	}

	// Only cancelled bookings remain; drop them with the profile so the
	// ledger's foreign key does not block the delete.
	if _, err := tx.Exec(ctx, `DELETE FROM public.bookings WHERE doctor_id = $1`, id); err != nil {
		return fmt.Errorf("delete cancelled bookings failed: %w", err)
	}

	// slot_offers rows go with the doctor via ON DELETE CASCADE.
	ct, err := tx.Exec(ctx, `DELETE FROM public.doctors WHERE id = $1`, id)
	if err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.ForeignKeyViolation {
			return ErrHasActiveBookings
		}
		return fmt.Errorf("delete doctor failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

func (r *pgxRepository) Offer(ctx context.Context, doctorID string, groups []SlotGroup) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin offer failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockDoctor(ctx, tx, doctorID); err != nil {
		return err
	}

	if err := insertOffers(ctx, tx, doctorID, groups); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE public.doctors SET updated_at = now() WHERE id = $1`, doctorID); err != nil {
		return fmt.Errorf("bump doctor updated_at failed: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgxRepository) Withdraw(ctx context.Context, doctorID, date string, labels []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin withdraw failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockDoctor(ctx, tx, doctorID); err != nil {
		return err
	}

	const del = `
		DELETE FROM public.slot_offers
		WHERE doctor_id = $1 AND slot_date = $2 AND time_label = $3
	`
	for _, label := range labels {
		ct, err := tx.Exec(ctx, del, doctorID, date, label)
		if err != nil {
			return fmt.Errorf("withdraw slot failed: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return ErrSlotNotOffered
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE public.doctors SET updated_at = now() WHERE id = $1`, doctorID); err != nil {
		return fmt.Errorf("bump doctor updated_at failed: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgxRepository) OwnerOf(ctx context.Context, doctorID string) (string, error) {
	const query = `SELECT user_id FROM public.doctors WHERE id = $1`

	var ownerID string
	if err := r.pool.QueryRow(ctx, query, doctorID).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve doctor owner failed: %w", err)
	}
	return ownerID, nil
}

// lockDoctor takes the per-doctor row lock, the mutual-exclusion scope
// shared with the booking allocation transactions.
func lockDoctor(ctx context.Context, tx pgx.Tx, doctorID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM public.doctors WHERE id = $1 FOR UPDATE`, doctorID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock doctor failed: %w", err)
	}
	return nil
}

// insertOffers appends slot offers, skipping labels already in the
// catalog for that date and labels held by a non-cancelled booking. The
// second guard keeps the catalog and ledger consistent: a tuple may be
// advertised or booked, never both.
func insertOffers(ctx context.Context, tx pgx.Tx, doctorID string, groups []SlotGroup) error {
	const ins = `
		INSERT INTO public.slot_offers (doctor_id, slot_date, time_label)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (
			SELECT 1 FROM public.bookings
			WHERE doctor_id = $1 AND slot_date = $2 AND time_label = $3
			  AND status <> 'cancelled'
		)
		ON CONFLICT (doctor_id, slot_date, time_label) DO NOTHING
	`
	for _, g := range groups {
		for _, label := range g.Slots {
			if _, err := tx.Exec(ctx, ins, doctorID, g.Date, label); err != nil {
				return fmt.Errorf("insert slot offer failed: %w", err)
			}
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoctor(row rowScanner) (*Doctor, error) {
	var d Doctor
	var groupsJSON []byte

	if err := row.Scan(
		&d.ID, &d.UserID, &d.Name, &d.Specialty, &d.PhotoFileID,
		&d.CreatedAt, &d.UpdatedAt, &groupsJSON,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get doctor failed: %w", err)
	}

	if err := json.Unmarshal(groupsJSON, &d.SlotGroups); err != nil {
		return nil, fmt.Errorf("unmarshal slot groups for doctor %s failed: %w", d.ID, err)
	}

	return &d, nil
}
