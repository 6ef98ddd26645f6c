// Command orchestratord runs the multi-agent task orchestrator core: it
// wires the Profile Registry, Workflow Graph, Transition Dispatcher, and
// Worker Pool together and exposes a minimal HTTP health surface.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/taskpilot-dev/taskpilot/internal/agentsession"
	"github.com/taskpilot-dev/taskpilot/internal/branch"
	orchconfig "github.com/taskpilot-dev/taskpilot/internal/config"
	"github.com/taskpilot-dev/taskpilot/internal/contextstore"
	"github.com/taskpilot-dev/taskpilot/internal/dispatcher"
	"github.com/taskpilot-dev/taskpilot/internal/masking"
	"github.com/taskpilot-dev/taskpilot/internal/mcptools"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/profile/overridestore"
	"github.com/taskpilot-dev/taskpilot/internal/prompt"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb/memory"
	taskdbpostgres "github.com/taskpilot-dev/taskpilot/internal/taskdb/postgres"
	"github.com/taskpilot-dev/taskpilot/internal/worker"
	"github.com/taskpilot-dev/taskpilot/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	workspaceRoot := flag.String("workspace-root", getEnv("WORKSPACE_ROOT", "."), "Repository root the agent sessions operate in")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	logger := slog.Default()
	ctx := context.Background()

	cfg, err := orchconfig.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	testMode := getEnv("ORCHESTRATOR_TEST_MODE", "") != ""

	tasks, err := newTaskStore(ctx, testMode)
	if err != nil {
		log.Fatalf("failed to initialize task store: %v", err)
	}
	if pgStore, ok := tasks.(*taskdbpostgres.Store); ok {
		defer func() {
			if err := pgStore.Close(); err != nil {
				logger.Warn("error closing task store", "error", err)
			}
		}()
	}

	contexts, overrideStore, err := newStores(ctx, testMode, tasks)
	if err != nil {
		log.Fatalf("failed to initialize context/profile override stores: %v", err)
	}

	profiles := profile.NewWithDefaults(cfg.ProfileDefaults, overrideStore)
	if err := profiles.Load(ctx); err != nil {
		logger.Warn("profile registry load degraded to defaults-only", "error", err)
	}

	branches, err := branch.New(*workspaceRoot)
	if err != nil {
		log.Fatalf("failed to resolve git binary: %v", err)
	}

	mcpClient := mcptools.New(collectMCPServers(cfg.ProfileDefaults), version.AppName, version.GitCommit)
	defer func() {
		if err := mcpClient.Close(); err != nil {
			logger.Warn("error closing mcp client", "error", err)
		}
	}()

	agents := agentsession.New(map[string]agentsession.Launcher{
		"codex":    {Command: getEnv("CODEX_COMMAND", "codex"), Args: []string{"acp"}},
		"opencode": {Command: getEnv("OPENCODE_COMMAND", "opencode"), Args: []string{"acp"}},
	})

	disp := dispatcher.New(dispatcher.Dependencies{
		Tasks:         tasks,
		Contexts:      contexts,
		Profiles:      profiles,
		Branches:      branches,
		Prompts:       prompt.New(*workspaceRoot),
		Agents:        agents,
		Graph:         cfg.Graph,
		MCP:           mcpClient,
		WorkspaceRoot: *workspaceRoot,
		Logger:        logger,
		Masker:        masking.New(),
	})

	pool := worker.NewPool(worker.Dependencies{
		Tasks:      tasks,
		Contexts:   contexts,
		Graph:      cfg.Graph,
		Dispatcher: disp,
		Logger:     logger,
	}, cfg.Worker)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pool.Start(runCtx)
	defer pool.Stop()

	router := gin.Default()
	router.GET("/healthz", func(c *gin.Context) {
		health := pool.Health()
		status := http.StatusOK
		if !health.Healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})
	router.GET("/metrics", func(c *gin.Context) {
		states := make(map[string]profile.State, len(cfg.ProfileDefaults))
		for name := range cfg.ProfileDefaults {
			if s, ok := profiles.State(name); ok {
				states[name] = s
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"pool":     pool.Health(),
			"profiles": states,
		})
	})

	log.Printf("%s listening on :%s (test_mode=%v)", version.Full(), httpPort, testMode)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// newTaskStore selects the in-memory taskdb.Store under
// ORCHESTRATOR_TEST_MODE, or a real Postgres-backed Store otherwise.
func newTaskStore(ctx context.Context, testMode bool) (taskdb.Store, error) {
	if testMode {
		return memory.New(), nil
	}
	dbCfg, err := taskdbpostgres.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return taskdbpostgres.NewStore(ctx, dbCfg)
}

// newStores selects in-memory or Postgres-backed context/profile-override
// stores, reusing the Postgres task store's connection pool when one
// exists (the three tables share one migrations directory and database).
func newStores(ctx context.Context, testMode bool, tasks taskdb.Store) (contextstore.Store, overridestore.Store, error) {
	if testMode {
		return contextstore.NewMemory(), overridestore.NewMemory(), nil
	}
	pgStore, ok := tasks.(*taskdbpostgres.Store)
	if !ok {
		return contextstore.NewMemory(), overridestore.NewMemory(), nil
	}
	return contextstore.NewPostgres(pgStore.DB()), overridestore.NewPostgres(pgStore.DB()), nil
}

// collectMCPServers flattens the union of every profile's declared MCP
// servers into the Client's connection table, deduplicated by name.
func collectMCPServers(defaults map[string]profile.Profile) []mcptools.ServerConfig {
	seen := make(map[string]mcptools.ServerConfig)
	for _, p := range defaults {
		for _, ref := range p.MCPServers {
			seen[ref.Name] = mcptools.ServerConfig{
				Name:          ref.Name,
				Transport:     mcptools.TransportType(ref.Transport),
				Command:       ref.Command,
				Args:          ref.Args,
				Env:           ref.Env,
				URL:           ref.URL,
				BaseToolNames: ref.BaseToolNames,
			}
		}
	}
	out := make([]mcptools.ServerConfig, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	return out
}
