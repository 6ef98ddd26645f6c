package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

// PoolHealth aggregates every worker's health plus orphan-scan metrics, for
// a process-level /healthz endpoint (SUPPLEMENTED FEATURES: worker pool
// health surface).
type PoolHealth struct {
	Healthy          bool     `json:"healthy"`
	TotalWorkers     int      `json:"total_workers"`
	ActiveWorkers    int      `json:"active_workers"`
	Workers          []Health `json:"workers"`
	LastOrphanScan   time.Time `json:"last_orphan_scan"`
	OrphansRecovered int      `json:"orphans_recovered"`
}

// Pool runs Config.WorkerCount Workers against shared Dependencies, plus a
// background scan that resets stale in-progress tasks back to todo —
// adapted from a stale-session recovery scan that marks sessions with a
// stale heartbeat as timed_out.
//
// taskdb.TaskPatch has no AssignedWorker field, so this adaptation can only
// reset Status; the stale AssignedWorker id is left in place until a
// worker (any worker, since claims are idempotent by status+deps) claims
// or overwrites it on its next successful dispatch. This is a narrower
// recovery than fully clearing session ownership.
type Pool struct {
	deps    Dependencies
	cfg     Config
	workers []*Worker

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// NewPool builds a Pool of cfg.WorkerCount Workers sharing deps.
func NewPool(deps Dependencies, cfg Config) *Pool {
	cfg = cfg.withDefaults()
	return &Pool{
		deps:   deps,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

// Start spawns the worker goroutines and the orphan-recovery scan. Safe to
// call once; a second call is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		p.deps.Logger.Warn("worker pool already started, ignoring duplicate Start")
		return
	}
	p.started = true

	for i := 0; i < p.cfg.WorkerCount; i++ {
		id := fmt.Sprintf("%s-%d", NewWorkerID(), i)
		w := New(id, p.deps, p.cfg)
		p.workers = append(p.workers, w)
		w.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanScan(ctx)
	}()

	p.deps.Logger.Info("worker pool started", "worker_count", len(p.workers))
}

// Stop signals every worker and the orphan scan to stop, and waits for
// them to finish.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	p.deps.Logger.Info("worker pool stopped")
}

// Health aggregates every worker's Health snapshot.
func (p *Pool) Health() PoolHealth {
	stats := make([]Health, len(p.workers))
	active := 0
	for i, w := range p.workers {
		h := w.Health()
		stats[i] = h
		if h.Status == StatusWorking {
			active++
		}
	}

	p.mu.Lock()
	lastScan := p.lastOrphanScan
	recovered := p.orphansRecovered
	p.mu.Unlock()

	return PoolHealth{
		Healthy:          len(p.workers) > 0,
		TotalWorkers:     len(p.workers),
		ActiveWorkers:    active,
		Workers:          stats,
		LastOrphanScan:   lastScan,
		OrphansRecovered: recovered,
	}
}

func (p *Pool) runOrphanScan(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.OrphanScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.scanOnce(ctx); err != nil {
				p.deps.Logger.Error("orphan scan failed", "error", err)
			}
		}
	}
}

func (p *Pool) scanOnce(ctx context.Context) error {
	tasks, err := p.deps.Tasks.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("listing tasks for orphan scan: %w", err)
	}

	threshold := time.Now().Add(-p.cfg.OrphanThreshold)
	recovered := 0
	for _, t := range tasks {
		if t.Status != taskdb.StatusInProgress {
			continue
		}
		if t.AssignedWorker == "" || t.UpdatedAt.IsZero() || t.UpdatedAt.After(threshold) {
			continue
		}
		if err := p.deps.Tasks.UpdateTaskStatus(ctx, t.ID, taskdb.StatusTodo, "orphan-scan"); err != nil {
			p.deps.Logger.Error("failed to recover orphaned task", "task", t.ID, "error", err)
			continue
		}
		p.deps.Logger.Warn("recovered orphaned task", "task", t.ID, "assigned_worker", t.AssignedWorker, "stale_since", t.UpdatedAt)
		_ = p.deps.Tasks.AppendActionLog(ctx, t.ID, taskdb.ActionLogEntry{
			Timestamp: time.Now(),
			Actor:     "orphan-scan",
			Summary:   fmt.Sprintf("reset to todo: no activity from worker %s since %s", t.AssignedWorker, t.UpdatedAt.Format(time.RFC3339)),
			Success:   true,
		})
		recovered++
	}

	p.mu.Lock()
	p.lastOrphanScan = time.Now()
	p.orphansRecovered += recovered
	p.mu.Unlock()

	if recovered > 0 {
		p.deps.Logger.Warn("orphan scan recovered stale tasks", "count", recovered)
	}
	return nil
}
