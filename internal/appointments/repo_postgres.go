package appointments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// PostgresRepo persists appointments in the appointments table. The partial
// unique index on (source_call_id, rescheduled_from) backs the idempotency
// invariant.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const selectAppointment = `
SELECT id, COALESCE(customer_id, ''), phone_number, service_type, scheduled_at, duration_minutes,
       status, COALESCE(notes, ''), COALESCE(source_call_id, ''), COALESCE(rescheduled_from, ''),
       COALESCE(calendar_event_ref, ''), calendar_synced, created_at, updated_at
FROM appointments`

func (r *PostgresRepo) Insert(ctx context.Context, a Appointment) error {
	const q = `
INSERT INTO appointments (id, customer_id, phone_number, service_type, scheduled_at, duration_minutes,
                          status, notes, source_call_id, rescheduled_from, calendar_event_ref,
                          calendar_synced, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, q,
		a.ID, nullable(a.CustomerID), a.Phone, a.ServiceType, a.ScheduledAt, a.DurationMinutes,
		a.Status, nullable(a.Notes), nullable(a.SourceCallID), nullable(a.RescheduledFrom),
		nullable(a.CalendarEventRef), a.CalendarSynced, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.ErrConflict
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx, selectAppointment+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Appointment{}, fault.NotFound("appointment %q", id)
	}
	return a, err
}

func (r *PostgresRepo) Update(ctx context.Context, a Appointment) error {
	const q = `
UPDATE appointments
SET status = $2, notes = $3, calendar_event_ref = $4, calendar_synced = $5, updated_at = $6
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q,
		a.ID, a.Status, nullable(a.Notes), nullable(a.CalendarEventRef), a.CalendarSynced, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.NotFound("appointment %q", a.ID)
	}
	return nil
}

func (r *PostgresRepo) ListActiveByPhone(ctx context.Context, phone string, from time.Time) ([]Appointment, error) {
	q := selectAppointment + `
WHERE phone_number = $1 AND status IN ('pending', 'confirmed', 'rescheduled') AND scheduled_at >= $2
ORDER BY scheduled_at`
	return r.queryMany(ctx, q, phone, from)
}

func (r *PostgresRepo) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]Appointment, error) {
	q := selectAppointment + `
WHERE status IN ('pending', 'confirmed', 'rescheduled')
  AND id <> $3
  AND scheduled_at < $2
  AND scheduled_at + make_interval(mins => duration_minutes) > $1`
	return r.queryMany(ctx, q, start, end, excludeID)
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	q := selectAppointment + `
WHERE ($1 = '' OR phone_number = $1) AND ($2 = '' OR status = $2)
ORDER BY scheduled_at LIMIT $3 OFFSET $4`
	return r.queryMany(ctx, q, f.Phone, string(f.Status), f.Limit, f.Offset)
}

func (r *PostgresRepo) queryMany(ctx context.Context, q string, args ...any) ([]Appointment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.Phone, &a.ServiceType, &a.ScheduledAt, &a.DurationMinutes,
		&a.Status, &a.Notes, &a.SourceCallID, &a.RescheduledFrom,
		&a.CalendarEventRef, &a.CalendarSynced, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
