package profile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taskpilot-dev/taskpilot/internal/profile/overridestore"
)

// Registry loads built-in profiles on construction; Load then opens the
// override store. Load runs in the caller's goroutine and starts none of
// its own. Mutating operations (PutOverride/DeleteOverride) await that
// load, while reads (Get/Snapshot/All) see defaults until it has run and
// pick up overrides as soon as it completes.
type Registry struct {
	defaults map[string]Profile

	store overridestore.Store

	mu          sync.RWMutex
	overrides   map[string]Override
	effective   map[string]Profile
	updatedAt   map[string]time.Time
	storeLocked bool

	states   map[string]*State
	statesMu sync.Mutex

	loaded chan struct{}
	logger *slog.Logger
}

// New constructs a Registry over the built-in profile table and the given
// override store. Call Load to open the store and apply its overrides.
func New(store overridestore.Store) *Registry {
	return NewWithDefaults(Builtin(), store)
}

// NewWithDefaults constructs a Registry over a caller-supplied defaults
// table instead of the compiled-in one — used by internal/config to layer
// YAML-declared MCP server overrides onto Builtin()'s output before the
// registry ever sees it.
func NewWithDefaults(defaults map[string]Profile, store overridestore.Store) *Registry {
	effective := make(map[string]Profile, len(defaults))
	states := make(map[string]*State, len(defaults))
	for name, p := range defaults {
		effective[name] = p
		states[name] = &State{}
	}
	return &Registry{
		defaults:  defaults,
		store:     store,
		overrides: make(map[string]Override),
		effective: effective,
		updatedAt: make(map[string]time.Time),
		states:    states,
		loaded:    make(chan struct{}),
		logger:    slog.Default(),
	}
}

// Load opens the override store and applies every persisted override. A
// locked store degrades to defaults-only: Load still returns nil (startup
// is never blocked by this), and PutOverride/DeleteOverride return
// overridestore.ErrLocked until
// an operator resolves the lock and the process is restarted.
func (r *Registry) Load(ctx context.Context) error {
	defer close(r.loaded)

	if err := r.store.Open(ctx); err != nil {
		if err == overridestore.ErrLocked {
			r.mu.Lock()
			r.storeLocked = true
			r.mu.Unlock()
			r.logger.Warn("profile override store is locked, running with defaults only")
			return nil
		}
		r.logger.Warn("profile override store failed to open, running with defaults only", "error", err)
		return nil
	}

	overrides, err := r.store.List(ctx)
	if err != nil {
		r.logger.Warn("failed to list profile overrides, running with defaults only", "error", err)
		return nil
	}

	r.mu.Lock()
	for _, ov := range overrides {
		if _, known := r.defaults[ov.ProfileName]; !known {
			continue
		}
		r.overrides[ov.ProfileName] = ov
		r.effective[ov.ProfileName] = applyOverride(r.defaults[ov.ProfileName], &ov)
		r.updatedAt[ov.ProfileName] = ov.UpdatedAt
	}
	r.mu.Unlock()
	return nil
}

// awaitLoad blocks until Load has run (or the context is done), so mutating
// calls never race the initial override application.
func (r *Registry) awaitLoad(ctx context.Context) {
	select {
	case <-r.loaded:
	case <-ctx.Done():
	}
}

// Get returns the effective profile for name.
func (r *Registry) Get(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.effective[name]
	return p, ok
}

// Snapshot returns the defaults/override/effective triplet for name.
func (r *Registry) Snapshot(name string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defaults, ok := r.defaults[name]
	if !ok {
		return Snapshot{}, false
	}
	snap := Snapshot{Defaults: defaults, Effective: r.effective[name]}
	if ov, ok := r.overrides[name]; ok {
		ovCopy := ov
		snap.Override = &ovCopy
	}
	if t, ok := r.updatedAt[name]; ok {
		snap.UpdatedAt = &t
	}
	return snap, true
}

// All returns every effective profile, keyed by name.
func (r *Registry) All() map[string]Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Profile, len(r.effective))
	for k, v := range r.effective {
		out[k] = v
	}
	return out
}

// PutOverride persists and applies an override for a profile. Awaits Load.
// Writes are serialized per profile name — a single registry-wide mutex is
// sufficient here since
// PutOverride/DeleteOverride hold it for the whole critical section,
// store write included.
func (r *Registry) PutOverride(ctx context.Context, ov Override) error {
	r.awaitLoad(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	locked := r.storeLocked
	defaults, known := r.defaults[ov.ProfileName]
	if !known {
		return ErrNotFound
	}
	if locked {
		return overridestore.ErrLocked
	}

	if ov.UpdatedAt.IsZero() {
		ov.UpdatedAt = timeNow()
	}

	if ov.IsEmpty() {
		if err := r.store.Del(ctx, ov.ProfileName); err != nil {
			r.logger.Warn("failed to delete profile override", "profile", ov.ProfileName, "error", err)
		}
	} else if err := r.store.Put(ctx, ov); err != nil {
		r.logger.Warn("failed to persist profile override", "profile", ov.ProfileName, "error", err)
	}

	if ov.IsEmpty() {
		delete(r.overrides, ov.ProfileName)
		delete(r.updatedAt, ov.ProfileName)
		r.effective[ov.ProfileName] = defaults
	} else {
		r.overrides[ov.ProfileName] = ov
		r.updatedAt[ov.ProfileName] = ov.UpdatedAt
		r.effective[ov.ProfileName] = applyOverride(defaults, &ov)
	}
	return nil
}

// DeleteOverride clears a profile's override, reverting it to defaults.
func (r *Registry) DeleteOverride(ctx context.Context, name string) error {
	return r.PutOverride(ctx, Override{ProfileName: name})
}

// State returns a profile's in-memory processing state.
func (r *Registry) State(name string) (State, bool) {
	r.statesMu.Lock()
	defer r.statesMu.Unlock()
	s, ok := r.states[name]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// RecordStart marks a session as in-flight for a profile.
func (r *Registry) RecordStart(name string) {
	r.statesMu.Lock()
	defer r.statesMu.Unlock()
	s := r.states[name]
	if s == nil {
		return
	}
	s.Active = true
	s.InFlight++
	s.LastActivity = timeNow()
}

// RecordFinish records a completed session's outcome and duration, updating
// the rolling last-100 history and moving average.
func (r *Registry) RecordFinish(name string, d time.Duration, success bool) {
	r.statesMu.Lock()
	defer r.statesMu.Unlock()
	s := r.states[name]
	if s == nil {
		return
	}
	if s.InFlight > 0 {
		s.InFlight--
	}
	if success {
		s.Completed++
	} else {
		s.Failed++
	}
	s.History = append(s.History, ProcessingRecord{Timestamp: timeNow(), Duration: d, Success: success})
	if len(s.History) > historyLimit {
		s.History = s.History[len(s.History)-historyLimit:]
	}
	var total time.Duration
	for _, h := range s.History {
		total += h.Duration
	}
	s.AvgProcessingTime = total / time.Duration(len(s.History))
	s.LastActivity = timeNow()
}

var timeNow = time.Now
