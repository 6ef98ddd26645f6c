package overridestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
)

func TestMemoryPutGetList(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Open(context.Background()))

	ov := profile.Override{ProfileName: "senior-developer", Model: "gpt-5-codex-mini", UpdatedAt: time.Now()}
	require.NoError(t, m.Put(context.Background(), ov))

	all, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "gpt-5-codex-mini", all[0].Model)
}

func TestMemoryPutEmptyDeletes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, profile.Override{ProfileName: "x", Model: "y"}))
	require.NoError(t, m.Put(ctx, profile.Override{ProfileName: "x"}))

	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryDel(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, profile.Override{ProfileName: "x", Model: "y"}))
	require.NoError(t, m.Del(ctx, "x"))

	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
