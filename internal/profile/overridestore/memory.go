package overridestore

import (
	"context"
	"sync"

	"github.com/taskpilot-dev/taskpilot/internal/profile"
)

// Memory is an in-process Store, used by tests and single-process deployments
// that don't need overrides to survive a restart.
type Memory struct {
	mu        sync.RWMutex
	overrides map[string]profile.Override
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{overrides: make(map[string]profile.Override)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Open(ctx context.Context) error { return nil }

func (m *Memory) List(ctx context.Context) ([]profile.Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]profile.Override, 0, len(m.overrides))
	for _, ov := range m.overrides {
		out = append(out, ov)
	}
	return out, nil
}

func (m *Memory) Put(ctx context.Context, ov profile.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ov.IsEmpty() {
		delete(m.overrides, ov.ProfileName)
		return nil
	}
	m.overrides[ov.ProfileName] = ov
	return nil
}

func (m *Memory) Del(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, name)
	return nil
}

func (m *Memory) Close() error { return nil }
