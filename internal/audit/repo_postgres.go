package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends events to the audit_log table. Insert-only; the
// schema carries no UPDATE path for this table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_log (id, type, actor_user_id, actor_role, ip_address,
                       call_id, appointment_id, callback_id, template_name,
                       message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Type, emptyNull(e.ActorUserID), emptyNull(e.ActorRole), emptyNull(e.IPAddress),
		emptyNull(e.CallID), emptyNull(e.AppointmentID), emptyNull(e.CallbackID), emptyNull(e.TemplateName),
		emptyNull(e.Message), emptyNull(e.Metadata), e.CreatedAt,
	)
	return err
}

func emptyNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
