package overridestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
)

// Postgres persists overrides in the profile_overrides table (created by
// the application's migrations, alongside the task tables — see
// internal/taskdb/postgres). Sharing one *sql.DB pool with the task store
// keeps the process's connection budget in one place.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an already-opened connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

// Open verifies connectivity. A lock-not-available error (pgcode 55P03,
// raised if another instance holds an advisory lock during a concurrent
// schema migration) classifies as ErrLocked — a soft failure the registry
// treats as "run with defaults only."
func (p *Postgres) Open(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.db.PingContext(pingCtx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return ErrLocked
		}
		return fmt.Errorf("overridestore: opening postgres store: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]profile.Override, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT profile_name, runtime, model, system_prompt, task_prompt_prefix, updated_at
		FROM profile_overrides`)
	if err != nil {
		return nil, fmt.Errorf("overridestore: listing overrides: %w", err)
	}
	defer rows.Close()

	var out []profile.Override
	for rows.Next() {
		var ov profile.Override
		if err := rows.Scan(&ov.ProfileName, &ov.Runtime, &ov.Model, &ov.SystemPrompt, &ov.TaskPromptPrefix, &ov.UpdatedAt); err != nil {
			return nil, fmt.Errorf("overridestore: scanning override row: %w", err)
		}
		out = append(out, ov)
	}
	return out, rows.Err()
}

func (p *Postgres) Put(ctx context.Context, ov profile.Override) error {
	if ov.IsEmpty() {
		return p.Del(ctx, ov.ProfileName)
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO profile_overrides (profile_name, runtime, model, system_prompt, task_prompt_prefix, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (profile_name) DO UPDATE SET
			runtime = EXCLUDED.runtime,
			model = EXCLUDED.model,
			system_prompt = EXCLUDED.system_prompt,
			task_prompt_prefix = EXCLUDED.task_prompt_prefix,
			updated_at = EXCLUDED.updated_at`,
		ov.ProfileName, ov.Runtime, ov.Model, ov.SystemPrompt, ov.TaskPromptPrefix, ov.UpdatedAt)
	if err != nil {
		return fmt.Errorf("overridestore: putting override for %q: %w", ov.ProfileName, err)
	}
	return nil
}

func (p *Postgres) Del(ctx context.Context, name string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM profile_overrides WHERE profile_name = $1`, name)
	if err != nil {
		return fmt.Errorf("overridestore: deleting override for %q: %w", name, err)
	}
	return nil
}

func (p *Postgres) Close() error { return nil }
