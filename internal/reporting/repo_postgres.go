package reporting

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/adityapallipati/voice-agent/internal/appointments"
	"github.com/adityapallipati/voice-agent/internal/callbacks"
	"github.com/adityapallipati/voice-agent/internal/calls"
)

// PostgresRepo reads the record tables directly. Reporting never writes.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListCalls(ctx context.Context, from, to time.Time) ([]calls.Call, error) {
	const q = `
SELECT call_id, direction, phone_number, COALESCE(customer_id, ''), COALESCE(transcript, ''),
       COALESCE(intent, ''), COALESCE(fields, '{}'), status, COALESCE(outcome, ''), created_at, updated_at
FROM calls
WHERE created_at >= $1 AND created_at < $2`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calls.Call
	for rows.Next() {
		var c calls.Call
		var rawFields []byte
		if err := rows.Scan(
			&c.CallID, &c.Direction, &c.Phone, &c.CustomerID, &c.Transcript,
			&c.Intent, &rawFields, &c.Status, &c.Outcome, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(rawFields) > 0 {
			_ = json.Unmarshal(rawFields, &c.Fields)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListCallbacks(ctx context.Context, from, to time.Time) ([]callbacks.Callback, error) {
	const q = `
SELECT id, phone_number, COALESCE(customer_id, ''), purpose, COALESCE(script, ''), requested_at,
       status, attempt_count, next_attempt_at, COALESCE(last_error, ''),
       COALESCE(provider_call_id, ''), COALESCE(source_call_id, ''), created_at, updated_at
FROM callbacks
WHERE created_at >= $1 AND created_at < $2`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []callbacks.Callback
	for rows.Next() {
		var cb callbacks.Callback
		if err := rows.Scan(
			&cb.ID, &cb.Phone, &cb.CustomerID, &cb.Purpose, &cb.Script, &cb.RequestedAt,
			&cb.Status, &cb.AttemptCount, &cb.NextAttemptAt, &cb.LastError,
			&cb.ProviderCallID, &cb.SourceCallID, &cb.CreatedAt, &cb.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListAppointments(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error) {
	const q = `
SELECT id, COALESCE(customer_id, ''), phone_number, service_type, scheduled_at, duration_minutes,
       status, COALESCE(notes, ''), COALESCE(source_call_id, ''), COALESCE(rescheduled_from, ''),
       COALESCE(calendar_event_ref, ''), calendar_synced, created_at, updated_at
FROM appointments
WHERE created_at >= $1 AND created_at < $2`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []appointments.Appointment
	for rows.Next() {
		var a appointments.Appointment
		if err := rows.Scan(
			&a.ID, &a.CustomerID, &a.Phone, &a.ServiceType, &a.ScheduledAt, &a.DurationMinutes,
			&a.Status, &a.Notes, &a.SourceCallID, &a.RescheduledFrom,
			&a.CalendarEventRef, &a.CalendarSynced, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
