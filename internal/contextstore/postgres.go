package contextstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Postgres persists contexts in a workflow_contexts(context_id text primary
// key, data jsonb, updated_at timestamptz) table (see internal/taskdb/postgres
// migrations). Patch runs inside a transaction with SELECT ... FOR UPDATE so
// concurrent patches to the same contextId serialize instead of clobbering
// each other — the merge itself happens in Go, not via jsonb's "||" operator,
// because "||" can't express the patch's null-deletes-key semantics.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an already-opened connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

func (p *Postgres) Get(ctx context.Context, id string) (map[string]any, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM workflow_contexts WHERE context_id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("contextstore: getting context %q: %w", id, err)
	}
	var value map[string]any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("contextstore: decoding context %q: %w", id, err)
	}
	return value, nil
}

func (p *Postgres) Patch(ctx context.Context, id string, patch map[string]any) (map[string]any, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("contextstore: beginning patch transaction for %q: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT data FROM workflow_contexts WHERE context_id = $1 FOR UPDATE`, id).Scan(&raw)
	var existing map[string]any
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = map[string]any{}
	case err != nil:
		return nil, fmt.Errorf("contextstore: locking context %q: %w", id, err)
	default:
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, fmt.Errorf("contextstore: decoding context %q: %w", id, err)
		}
	}

	merged := ApplyPatch(existing, patch)
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("contextstore: encoding context %q: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_contexts (context_id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (context_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		id, encoded)
	if err != nil {
		return nil, fmt.Errorf("contextstore: writing context %q: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("contextstore: committing patch for %q: %w", id, err)
	}
	return merged, nil
}

func (p *Postgres) Replace(ctx context.Context, id string, value map[string]any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("contextstore: encoding context %q: %w", id, err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO workflow_contexts (context_id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (context_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		id, encoded)
	if err != nil {
		return fmt.Errorf("contextstore: replacing context %q: %w", id, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM workflow_contexts WHERE context_id = $1`, id)
	if err != nil {
		return fmt.Errorf("contextstore: deleting context %q: %w", id, err)
	}
	return nil
}
