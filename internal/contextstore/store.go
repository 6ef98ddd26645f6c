// Package contextstore implements the Workflow Context: a JSON-shaped
// mapping keyed by contextId that the worker loop reads, merges, and
// patches once per transition.
package contextstore

import (
	"context"
	"errors"
)

// ErrNotFound marks an absent contextId. Neither Memory nor Postgres
// returns it: their Get answers an unknown contextId with an empty map and
// a nil error, so an unknown contextId simply starts from an empty context.
var ErrNotFound = errors.New("contextstore: not found")

// Store is the Workflow Context's persistence dependency. Implementations
// must make Patch atomic per contextId: concurrent patches to the same id
// must not lose a write (see Postgres's row-level locking, Memory's mutex).
type Store interface {
	// Get returns the full context map for id, or an empty map if absent.
	Get(ctx context.Context, id string) (map[string]any, error)
	// Patch merges patch into the stored context for id (shallow key merge;
	// a nil value for a key deletes it), creating the record if absent, and
	// returns the resulting full context.
	Patch(ctx context.Context, id string, patch map[string]any) (map[string]any, error)
	// Replace overwrites the full context for id.
	Replace(ctx context.Context, id string, value map[string]any) error
	// Delete removes a context entirely.
	Delete(ctx context.Context, id string) error
}

// ApplyPatch performs the shallow merge Patch implementations use: patch
// keys with a nil value delete; all others overwrite.
func ApplyPatch(base map[string]any, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
