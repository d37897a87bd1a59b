package callbacks

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// PostgresRepo persists callbacks in the callbacks table. Claim relies on a
// conditional UPDATE, so two workers racing for a callback resolve at the
// database without advisory locks.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const selectCallback = `
SELECT id, phone_number, COALESCE(customer_id, ''), purpose, COALESCE(script, ''), requested_at,
       status, attempt_count, next_attempt_at, COALESCE(last_error, ''),
       COALESCE(provider_call_id, ''), COALESCE(source_call_id, ''), created_at, updated_at
FROM callbacks`

func (r *PostgresRepo) Insert(ctx context.Context, cb Callback) error {
	const q = `
INSERT INTO callbacks (id, phone_number, customer_id, purpose, script, requested_at,
                       status, attempt_count, next_attempt_at, last_error,
                       provider_call_id, source_call_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, q,
		cb.ID, cb.Phone, nullable(cb.CustomerID), cb.Purpose, nullable(cb.Script), cb.RequestedAt,
		cb.Status, cb.AttemptCount, cb.NextAttemptAt, nullable(cb.LastError),
		nullable(cb.ProviderCallID), nullable(cb.SourceCallID), cb.CreatedAt, cb.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.ErrConflict
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Callback, error) {
	cb, err := scanCallback(r.db.QueryRowContext(ctx, selectCallback+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Callback{}, fault.NotFound("callback %q", id)
	}
	return cb, err
}

func (r *PostgresRepo) Update(ctx context.Context, cb Callback) error {
	const q = `
UPDATE callbacks
SET status = $2, attempt_count = $3, next_attempt_at = $4, last_error = $5,
    provider_call_id = $6, script = $7, updated_at = $8
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q,
		cb.ID, cb.Status, cb.AttemptCount, cb.NextAttemptAt, nullable(cb.LastError),
		nullable(cb.ProviderCallID), nullable(cb.Script), cb.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.NotFound("callback %q", cb.ID)
	}
	return nil
}

func (r *PostgresRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]Callback, error) {
	q := selectCallback + `
WHERE status = 'pending' AND next_attempt_at <= $1
ORDER BY next_attempt_at
LIMIT $2`
	return r.queryMany(ctx, q, now, limit)
}

func (r *PostgresRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Callback, error) {
	q := selectCallback + `
WHERE status IN ('claimed', 'in_progress') AND updated_at <= $1
ORDER BY updated_at
LIMIT $2`
	return r.queryMany(ctx, q, cutoff, limit)
}

func (r *PostgresRepo) Claim(ctx context.Context, id string) (bool, error) {
	const q = `
UPDATE callbacks SET status = 'claimed', updated_at = now()
WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (Callback, error) {
	cb, err := scanCallback(r.db.QueryRowContext(ctx,
		selectCallback+` WHERE provider_call_id = $1`, providerCallID))
	if errors.Is(err, sql.ErrNoRows) {
		return Callback{}, fault.NotFound("callback for provider call %q", providerCallID)
	}
	return cb, err
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Callback, error) {
	q := selectCallback + `
WHERE ($1 = '' OR phone_number = $1) AND ($2 = '' OR status = $2)
ORDER BY requested_at LIMIT $3 OFFSET $4`
	return r.queryMany(ctx, q, f.Phone, string(f.Status), f.Limit, f.Offset)
}

func (r *PostgresRepo) queryMany(ctx context.Context, q string, args ...any) ([]Callback, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Callback
	for rows.Next() {
		cb, err := scanCallback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallback(row rowScanner) (Callback, error) {
	var cb Callback
	err := row.Scan(
		&cb.ID, &cb.Phone, &cb.CustomerID, &cb.Purpose, &cb.Script, &cb.RequestedAt,
		&cb.Status, &cb.AttemptCount, &cb.NextAttemptAt, &cb.LastError,
		&cb.ProviderCallID, &cb.SourceCallID, &cb.CreatedAt, &cb.UpdatedAt,
	)
	if err != nil {
		return Callback{}, err
	}
	return cb, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
