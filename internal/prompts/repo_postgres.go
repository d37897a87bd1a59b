package prompts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adityapallipati/voice-agent/internal/fault"
)

// PostgresRepo persists templates in the prompt_templates table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetActive(ctx context.Context, name string) (Template, error) {
	const q = `
SELECT id, name, content, COALESCE(description, ''), version, active, created_at, updated_at
FROM prompt_templates
WHERE name = $1 AND active = TRUE`
	var t Template
	err := r.db.QueryRowContext(ctx, q, name).Scan(
		&t.ID, &t.Name, &t.Content, &t.Description, &t.Version, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, fault.NotFound("template %q", name)
	}
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, t Template) error {
	const q = `
INSERT INTO prompt_templates (id, name, content, description, version, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.Name, t.Content, t.Description, t.Version, t.Active, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, t Template) error {
	const q = `
UPDATE prompt_templates
SET content = $2, description = $3, version = $4, updated_at = $5
WHERE name = $1 AND active = TRUE`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Content, t.Description, t.Version, t.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.NotFound("template %q", t.Name)
	}
	return nil
}

func (r *PostgresRepo) Deactivate(ctx context.Context, name string) error {
	const q = `UPDATE prompt_templates SET active = FALSE, updated_at = NOW() WHERE name = $1 AND active = TRUE`
	res, err := r.db.ExecContext(ctx, q, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.NotFound("template %q", name)
	}
	return nil
}
