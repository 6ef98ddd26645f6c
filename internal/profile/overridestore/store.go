// Package overridestore persists Profile Override records keyed by profile
// name, exposing open, iterator, put(name, record), del(name), and close
// operations, with a locked-store failure degrading the registry to defaults-only
// rather than aborting startup.
package overridestore

import (
	"context"
	"errors"

	"github.com/taskpilot-dev/taskpilot/internal/profile"
)

// ErrLocked is returned by Open when the store is held by another process,
// a LEVEL_LOCKED-like soft-failure case.
var ErrLocked = errors.New("overridestore: store is locked by another process")

// Store is the Profile Registry's override persistence dependency.
type Store interface {
	// Open prepares the store for use; ErrLocked is a recognized soft failure.
	Open(ctx context.Context) error
	// List returns every persisted override.
	List(ctx context.Context) ([]profile.Override, error)
	// Put upserts an override record.
	Put(ctx context.Context, ov profile.Override) error
	// Del removes a profile's override record, if any.
	Del(ctx context.Context, name string) error
	// Close releases the store.
	Close() error
}
