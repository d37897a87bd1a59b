package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/pkg/utils"
)

// PostgresRepo persists call sessions in the calls table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Insert(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (call_id, direction, phone_number, customer_id, transcript, intent, fields, status, outcome, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (call_id) DO NOTHING`
	fields, err := marshalFields(c.Fields)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q,
		c.CallID, c.Direction, c.Phone, nullable(c.CustomerID), c.Transcript, c.Intent, fields,
		c.Status, c.Outcome, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.ErrConflict
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, callID string) (Call, error) {
	const q = selectCall + ` WHERE call_id = $1`
	c, err := scanCall(r.db.QueryRowContext(ctx, q, callID))
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, fault.NotFound("call %q", callID)
	}
	return c, err
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Call, error) {
	q := selectCall + ` WHERE ($1 = '' OR status = $1) AND ($2 = '' OR direction = $2)
ORDER BY created_at LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, q, string(f.Status), string(f.Direction), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, callID string, expected []Status, next Status, mutate func(*Call)) (Call, error) {
	var out Call
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		c, err := scanCall(tx.QueryRowContext(ctx, selectCall+` WHERE call_id = $1 FOR UPDATE`, callID))
		if errors.Is(err, sql.ErrNoRows) {
			return fault.NotFound("call %q", callID)
		}
		if err != nil {
			return err
		}
		allowed := false
		for _, s := range expected {
			if c.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return fault.ErrConflict
		}
		c.Status = next
		if mutate != nil {
			mutate(&c)
		}
		fields, err := marshalFields(c.Fields)
		if err != nil {
			return err
		}
		const upd = `
UPDATE calls SET status = $2, intent = $3, fields = $4, outcome = $5, updated_at = $6 WHERE call_id = $1`
		if _, err := tx.ExecContext(ctx, upd, c.CallID, c.Status, c.Intent, fields, c.Outcome, c.UpdatedAt); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (r *PostgresRepo) FailStale(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `
UPDATE calls SET status = 'failed', outcome = 'stale', updated_at = NOW()
WHERE status IN ('received', 'classified') AND updated_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

const selectCall = `
SELECT call_id, direction, phone_number, COALESCE(customer_id, ''), transcript, intent, fields, status, outcome, created_at, updated_at
FROM calls`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var c Call
	var fields []byte
	err := row.Scan(&c.CallID, &c.Direction, &c.Phone, &c.CustomerID, &c.Transcript, &c.Intent, &fields,
		&c.Status, &c.Outcome, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Call{}, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &c.Fields); err != nil {
			return Call{}, err
		}
	}
	return c, nil
}

func marshalFields(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte(`{}`), nil
	}
	return json.Marshal(m)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
