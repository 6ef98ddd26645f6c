package worker

import "time"

// Config carries the Worker Loop's tunables, a structural analogue of a
// queue config section.
type Config struct {
	// WorkerCount is how many Worker goroutines the Pool spawns.
	WorkerCount int

	// PollInterval is the base sleep between ticks when a tick found
	// nothing to do; PollIntervalJitter widens it to [base-jitter,
	// base+jitter]. Default 10s.
	PollInterval       time.Duration
	PollIntervalJitter time.Duration

	// NoTaskHeartbeatInterval bounds how often the "no-task wait" log line
	// fires while a tick repeatedly finds nothing runnable — at least every
	// 60s.
	NoTaskHeartbeatInterval time.Duration

	// ClaimMode enables atomic ClaimTask calls during task resolution;
	// off by default for single-worker/test runs.
	ClaimMode bool

	// OrphanScanInterval and OrphanThreshold drive the Pool's background
	// orphan recovery scan (SUPPLEMENTED FEATURES: stale in-progress tasks
	// with no recorded activity past the threshold are reset to todo).
	OrphanScanInterval time.Duration
	OrphanThreshold    time.Duration

	// ContextID is the Workflow Context id this Pool's workers share.
	// Defaults to "default" — a single pipeline instance per deployment is
	// this core's assumed shape; multi-tenancy is out of scope.
	ContextID string
}

// DefaultConfig returns the worker loop's stated defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:             1,
		PollInterval:            10 * time.Second,
		PollIntervalJitter:      0,
		NoTaskHeartbeatInterval: 60 * time.Second,
		OrphanScanInterval:      5 * time.Minute,
		OrphanThreshold:         15 * time.Minute,
		ContextID:               "default",
	}
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.NoTaskHeartbeatInterval <= 0 {
		c.NoTaskHeartbeatInterval = 60 * time.Second
	}
	if c.OrphanScanInterval <= 0 {
		c.OrphanScanInterval = 5 * time.Minute
	}
	if c.OrphanThreshold <= 0 {
		c.OrphanThreshold = 15 * time.Minute
	}
	if c.ContextID == "" {
		c.ContextID = "default"
	}
	return c
}
