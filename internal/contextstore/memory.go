package contextstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store, used by tests and single-worker setups.
type Memory struct {
	mu       sync.Mutex
	contexts map[string]map[string]any
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{contexts: make(map[string]map[string]any)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Get(ctx context.Context, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.contexts[id]
	if !ok {
		return map[string]any{}, nil
	}
	return ApplyPatch(existing, nil), nil
}

func (m *Memory) Patch(ctx context.Context, id string, patch map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := ApplyPatch(m.contexts[id], patch)
	m.contexts[id] = merged
	return ApplyPatch(merged, nil), nil
}

func (m *Memory) Replace(ctx context.Context, id string, value map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[id] = ApplyPatch(value, nil)
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contexts, id)
	return nil
}
