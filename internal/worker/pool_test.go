package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

func TestPoolStartStopHealth(t *testing.T) {
	deps := testDeps(t)
	cfg := DefaultConfig()
	cfg.WorkerCount = 3
	cfg.PollInterval = 10 * time.Millisecond
	p := NewPool(deps, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	time.Sleep(30 * time.Millisecond)

	h := p.Health()
	assert.Equal(t, 3, h.TotalWorkers)
	assert.Len(t, h.Workers, 3)

	p.Stop()
}

func TestPoolStartTwiceIsNoop(t *testing.T) {
	deps := testDeps(t)
	cfg := DefaultConfig()
	cfg.WorkerCount = 1
	p := NewPool(deps, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	p.Start(ctx)
	assert.Len(t, p.workers, 1)
	p.Stop()
}

func TestPoolScanOnceRecoversStaleInProgressTask(t *testing.T) {
	deps := testDeps(t)
	store := deps.Tasks.(interface {
		Seed(tasks ...taskdb.Task)
	})
	stale := taskdb.Task{
		ID:             "stale",
		Type:           taskdb.TypeImplementation,
		Status:         taskdb.StatusInProgress,
		AssignedWorker: "worker-dead",
		UpdatedAt:      time.Now().Add(-time.Hour),
	}
	store.Seed(stale)

	cfg := DefaultConfig()
	cfg.OrphanThreshold = time.Minute
	p := NewPool(deps, cfg)

	require.NoError(t, p.scanOnce(context.Background()))

	got, err := deps.Tasks.GetTask(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, taskdb.StatusTodo, got.Status)

	h := p.Health()
	assert.Equal(t, 1, h.OrphansRecovered)
}

func TestPoolScanOnceIgnoresFreshInProgressTask(t *testing.T) {
	deps := testDeps(t)
	store := deps.Tasks.(interface {
		Seed(tasks ...taskdb.Task)
	})
	fresh := taskdb.Task{
		ID:             "fresh",
		Type:           taskdb.TypeImplementation,
		Status:         taskdb.StatusInProgress,
		AssignedWorker: "worker-alive",
		UpdatedAt:      time.Now(),
	}
	store.Seed(fresh)

	cfg := DefaultConfig()
	cfg.OrphanThreshold = time.Hour
	p := NewPool(deps, cfg)

	require.NoError(t, p.scanOnce(context.Background()))

	got, err := deps.Tasks.GetTask(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, taskdb.StatusInProgress, got.Status)
}
