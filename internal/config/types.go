// Package config loads the orchestrator's YAML configuration tree: MCP
// server connection details, per-(state,transition) workflow graph
// overrides, and worker pool tuning — the mutable layer deployments stack
// on top of the compiled-in profile and workflow tables, which stay the
// base lookup table; this package only patches it.
//
// A YAML file is read from a config directory, environment variables are
// expanded before parsing, and built-in and user-declared values are
// merged with user values winning, via an explicit Initialize entry point
// that returns a ready-to-use, validated Config.
package config

// OrchestratorYAMLConfig is the top-level shape of orchestrator.yaml.
type OrchestratorYAMLConfig struct {
	MCPServers map[string]MCPServerConfig `yaml:"mcp_servers"`
	Graph      *GraphOverrides            `yaml:"graph"`
	Queue      *QueueConfig               `yaml:"queue"`
}

// MCPServerConfig overrides the connection details of a built-in MCP
// server declaration (profile.MCPServerRef), keyed by server name (e.g.
// "task-manager"). Zero fields leave the built-in value untouched.
type MCPServerConfig struct {
	Transport string            `yaml:"transport,omitempty"`
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	URL       string            `yaml:"url,omitempty"`
}

// GraphOverrides patches the compiled-in workflow graph's per-transition
// profile and target-type defaults.
type GraphOverrides struct {
	// Profiles maps a transition name to the profile that should execute
	// it, overriding the owning state's DefaultProfile.
	Profiles map[string]string `yaml:"profiles,omitempty"`

	// TargetTypes maps a transition name to the taskdb.Type it should
	// select against, overriding the owning state's TargetType.
	TargetTypes map[string]string `yaml:"target_types,omitempty"`
}

// QueueConfig mirrors internal/worker.Config's tunables as YAML-settable
// fields, named "queue" for the worker pool's task queue. Durations are
// declared as parseable strings ("10s", "5m") rather than time.Duration
// directly, parsed by time.ParseDuration after load, since gopkg.in/yaml.v3
// has no built-in duration-string support.
type QueueConfig struct {
	WorkerCount             int    `yaml:"worker_count,omitempty"`
	PollInterval            string `yaml:"poll_interval,omitempty"`
	PollIntervalJitter      string `yaml:"poll_interval_jitter,omitempty"`
	NoTaskHeartbeatInterval string `yaml:"no_task_heartbeat_interval,omitempty"`
	ClaimMode               bool   `yaml:"claim_mode,omitempty"`
	OrphanScanInterval      string `yaml:"orphan_scan_interval,omitempty"`
	OrphanThreshold         string `yaml:"orphan_threshold,omitempty"`
	ContextID               string `yaml:"context_id,omitempty"`
}
