package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/worker"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// fileName is the single YAML file this package reads from the config
// directory. Unlike a multi-file yaml/llm-providers.yaml
// split, this core has one override surface, so one file covers it.
const fileName = "orchestrator.yaml"

// Config is the fully resolved, ready-to-use result of Initialize: the
// profile defaults table with MCP server overrides applied, the workflow
// graph with its transition overrides applied, and the worker pool config.
type Config struct {
	ProfileDefaults map[string]profile.Profile
	Graph           *workflow.Graph
	Worker          worker.Config
}

// Initialize loads orchestrator.yaml (if present) from configDir, merges it
// onto the compiled-in profile and workflow tables, and returns a Config
// ready for cmd/orchestratord to build a Registry and Pool from. A missing
// file is not an error — every section is optional and the compiled-in
// defaults stand on their own.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing orchestrator configuration")

	yamlCfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	profileDefaults, err := resolveProfileDefaults(yamlCfg.MCPServers)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve MCP server overrides: %w", err)
	}

	graph, err := resolveGraph(yamlCfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve graph overrides: %w", err)
	}

	workerCfg, err := resolveWorkerConfig(yamlCfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve queue configuration: %w", err)
	}

	log.Info("configuration initialized successfully",
		"mcp_server_overrides", len(yamlCfg.MCPServers),
		"worker_count", workerCfg.WorkerCount)

	return &Config{
		ProfileDefaults: profileDefaults,
		Graph:           graph,
		Worker:          workerCfg,
	}, nil
}

// load reads and parses orchestrator.yaml, expanding environment variables
// first. A missing file yields a zero-value OrchestratorYAMLConfig rather
// than an error — callers proceed entirely on compiled-in defaults.
func load(_ context.Context, configDir string) (*OrchestratorYAMLConfig, error) {
	var cfg OrchestratorYAMLConfig

	path := filepath.Join(configDir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, &LoadError{File: fileName, Err: err}
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{File: fileName, Err: fmt.Errorf("%w: %v", ErrInvalidYAML, err)}
	}

	return &cfg, nil
}

// resolveProfileDefaults copies profile.Builtin()'s table and patches the
// MCP server connection details named in overrides, by server name, across
// every profile whose declared MCP servers include that name.
func resolveProfileDefaults(overrides map[string]MCPServerConfig) (map[string]profile.Profile, error) {
	builtin := profile.Builtin()
	if len(overrides) == 0 {
		return builtin, nil
	}

	out := make(map[string]profile.Profile, len(builtin))
	for name, p := range builtin {
		servers := make([]profile.MCPServerRef, len(p.MCPServers))
		copy(servers, p.MCPServers)
		for i, ref := range servers {
			ov, ok := overrides[ref.Name]
			if !ok {
				continue
			}
			if ov.Transport != "" {
				ref.Transport = ov.Transport
			}
			if ov.Command != "" {
				ref.Command = ov.Command
			}
			if len(ov.Args) > 0 {
				ref.Args = ov.Args
			}
			if len(ov.Env) > 0 {
				ref.Env = ov.Env
			}
			if ov.URL != "" {
				ref.URL = ov.URL
			}
			servers[i] = ref
		}
		p.MCPServers = servers
		out[name] = p
	}
	return out, nil
}

// resolveGraph applies per-transition profile/target-type overrides onto the
// compiled-in workflow graph via Graph.WithOverrides, converting the YAML's
// string target types to taskdb.Type along the way.
func resolveGraph(overrides *GraphOverrides) (*workflow.Graph, error) {
	base := workflow.Builtin()
	if overrides == nil {
		return base, nil
	}

	targetTypes := make(map[string]taskdb.Type, len(overrides.TargetTypes))
	for transition, t := range overrides.TargetTypes {
		typ := taskdb.Type(t)
		if !typ.IsValid() {
			return nil, fmt.Errorf("graph override for transition %q: unknown target type %q", transition, t)
		}
		targetTypes[transition] = typ
	}

	return base.WithOverrides(overrides.Profiles, targetTypes), nil
}

// resolveWorkerConfig merges user-provided queue settings onto
// worker.DefaultConfig(), with user values winning (mergo.WithOverride),
// then parses the string duration fields into time.Duration.
func resolveWorkerConfig(q *QueueConfig) (worker.Config, error) {
	cfg := worker.DefaultConfig()
	if q == nil {
		return cfg, nil
	}

	parsed := worker.Config{
		WorkerCount: q.WorkerCount,
		ClaimMode:   q.ClaimMode,
		ContextID:   q.ContextID,
	}

	var err error
	if parsed.PollInterval, err = parseDurationOrZero("poll_interval", q.PollInterval); err != nil {
		return worker.Config{}, err
	}
	if parsed.PollIntervalJitter, err = parseDurationOrZero("poll_interval_jitter", q.PollIntervalJitter); err != nil {
		return worker.Config{}, err
	}
	if parsed.NoTaskHeartbeatInterval, err = parseDurationOrZero("no_task_heartbeat_interval", q.NoTaskHeartbeatInterval); err != nil {
		return worker.Config{}, err
	}
	if parsed.OrphanScanInterval, err = parseDurationOrZero("orphan_scan_interval", q.OrphanScanInterval); err != nil {
		return worker.Config{}, err
	}
	if parsed.OrphanThreshold, err = parseDurationOrZero("orphan_threshold", q.OrphanThreshold); err != nil {
		return worker.Config{}, err
	}

	if err := mergo.Merge(&cfg, parsed, mergo.WithOverride); err != nil {
		return worker.Config{}, fmt.Errorf("failed to merge queue config: %w", err)
	}
	return cfg, nil
}

func parseDurationOrZero(field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("queue.%s: %w", field, err)
	}
	return d, nil
}
