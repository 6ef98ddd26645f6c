// Package mcptools wraps github.com/modelcontextprotocol/go-sdk/mcp for the
// orchestrator: connecting to a profile's declared MCP servers, listing
// their tools (cached), invoking tools with bounded retry, and mapping
// declared "base" tool names to the exact dotted names an agent runtime
// actually exposes.
package mcptools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client manages MCP sessions for the set of servers it was built with
// (cmd/orchestratord passes the union of every profile's servers). Its
// sessions live until Close.
type Client struct {
	servers map[string]ServerConfig

	mu            sync.RWMutex
	sessions      map[string]*mcpsdk.ClientSession
	clients       map[string]*mcpsdk.Client
	failedServers map[string]string

	toolCache   map[string][]*mcpsdk.Tool
	toolCacheMu sync.RWMutex

	reinitMu sync.Map // serverID -> *sync.Mutex

	appName, appVersion string
	logger              *slog.Logger
}

// New creates a Client for the given declared servers.
func New(servers []ServerConfig, appName, appVersion string) *Client {
	byName := make(map[string]ServerConfig, len(servers))
	for _, s := range servers {
		byName[s.Name] = s
	}
	return &Client{
		servers:       byName,
		sessions:      make(map[string]*mcpsdk.ClientSession),
		clients:       make(map[string]*mcpsdk.Client),
		failedServers: make(map[string]string),
		toolCache:     make(map[string][]*mcpsdk.Tool),
		appName:       appName,
		appVersion:    appVersion,
		logger:        slog.Default(),
	}
}

// Initialize connects to every named server, recording failures rather
// than aborting — partial initialization is acceptable per session.
func (c *Client) Initialize(ctx context.Context, serverNames []string) {
	for _, name := range serverNames {
		if err := c.InitializeServer(ctx, name); err != nil {
			c.mu.Lock()
			c.failedServers[name] = err.Error()
			c.mu.Unlock()
			c.logger.Warn("MCP server failed to initialize", "server", name, "error", err)
		}
	}
}

// InitializeServer connects to a single server, no-op if already connected.
func (c *Client) InitializeServer(ctx context.Context, name string) error {
	muI, _ := c.reinitMu.LoadOrStore(name, &sync.Mutex{})
	mu := muI.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return c.initializeServerLocked(ctx, name)
}

func (c *Client) initializeServerLocked(ctx context.Context, name string) error {
	c.mu.RLock()
	if _, exists := c.sessions[name]; exists {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	cfg, ok := c.servers[name]
	if !ok {
		return fmt.Errorf("mcptools: server %q not declared", name)
	}

	transport, err := createTransport(cfg)
	if err != nil {
		return fmt.Errorf("mcptools: creating transport for %q: %w", name, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, InitTimeout)
	defer cancel()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: c.appName, Version: c.appVersion}, nil)
	session, err := client.Connect(initCtx, transport, nil)
	if err != nil {
		if closer, ok := transport.(io.Closer); ok {
			_ = closer.Close()
		}
		return fmt.Errorf("mcptools: connecting to %q: %w", name, err)
	}

	c.mu.Lock()
	c.sessions[name] = session
	c.clients[name] = client
	delete(c.failedServers, name)
	c.mu.Unlock()

	c.logger.Info("MCP server connected", "server", name)
	return nil
}

// ListTools returns a server's tools, using a per-session cache.
func (c *Client) ListTools(ctx context.Context, serverName string) ([]*mcpsdk.Tool, error) {
	c.toolCacheMu.RLock()
	if cached, ok := c.toolCache[serverName]; ok {
		c.toolCacheMu.RUnlock()
		return cached, nil
	}
	c.toolCacheMu.RUnlock()

	c.mu.RLock()
	session, exists := c.sessions[serverName]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("mcptools: no session for server %q", serverName)
	}

	opCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	result, err := session.ListTools(opCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcptools: listing tools from %q: %w", serverName, err)
	}

	tools := result.Tools
	if tools == nil {
		tools = []*mcpsdk.Tool{}
	}
	c.toolCacheMu.Lock()
	c.toolCache[serverName] = tools
	c.toolCacheMu.Unlock()
	return tools, nil
}

// ListAllTools returns tools from every connected server, tolerating
// partial failures; errors only when every server failed.
func (c *Client) ListAllTools(ctx context.Context) (map[string][]*mcpsdk.Tool, error) {
	c.mu.RLock()
	names := make([]string, 0, len(c.sessions))
	for name := range c.sessions {
		names = append(names, name)
	}
	c.mu.RUnlock()

	result := make(map[string][]*mcpsdk.Tool)
	var lastErr error
	for _, name := range names {
		tools, err := c.ListTools(ctx, name)
		if err != nil {
			lastErr = err
			c.logger.Warn("Failed to list tools from MCP server", "server", name, "error", err)
			continue
		}
		result[name] = tools
	}
	if len(result) == 0 && lastErr != nil {
		return nil, fmt.Errorf("mcptools: all servers failed to list tools: %w", lastErr)
	}
	return result, nil
}

// CallTool invokes a tool, retrying once after a jittered backoff and
// session recreation if the failure classifies as a transport error.
func (c *Client) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) (*mcpsdk.CallToolResult, error) {
	params := &mcpsdk.CallToolParams{Name: toolName, Arguments: args}

	result, err := c.callToolOnce(ctx, serverName, params)
	if err == nil {
		return result, nil
	}

	if ClassifyError(err) == NoRetry {
		return nil, err
	}

	c.logger.Info("MCP call failed, retrying", "server", serverName, "tool", toolName, "error", err)

	backoff := RetryBackoffMin + time.Duration(rand.Int64N(int64(RetryBackoffMax-RetryBackoffMin)))
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := c.recreateSession(ctx, serverName); err != nil {
		return nil, fmt.Errorf("mcptools: session recreation failed for %q: %w", serverName, err)
	}

	result, err = c.callToolOnce(ctx, serverName, params)
	if err != nil {
		return nil, fmt.Errorf("mcptools: retry failed for %q.%s: %w", serverName, toolName, err)
	}
	return result, nil
}

func (c *Client) callToolOnce(ctx context.Context, serverName string, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error) {
	c.mu.RLock()
	session, exists := c.sessions[serverName]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("mcptools: no session for server %q", serverName)
	}
	opCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()
	return session.CallTool(opCtx, params)
}

func (c *Client) recreateSession(ctx context.Context, serverName string) error {
	muI, _ := c.reinitMu.LoadOrStore(serverName, &sync.Mutex{})
	mu := muI.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	c.mu.Lock()
	if session, exists := c.sessions[serverName]; exists {
		_ = session.Close()
		delete(c.sessions, serverName)
		delete(c.clients, serverName)
	}
	c.mu.Unlock()

	c.InvalidateToolCache(serverName)

	reinitCtx, cancel := context.WithTimeout(ctx, ReinitTimeout)
	defer cancel()
	return c.initializeServerLocked(reinitCtx, serverName)
}

// Close shuts down every session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for name, session := range c.sessions {
		if err := session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mcptools: closing session %q: %w", name, err)
		}
	}
	c.sessions = make(map[string]*mcpsdk.ClientSession)
	c.clients = make(map[string]*mcpsdk.Client)
	c.failedServers = make(map[string]string)

	c.toolCacheMu.Lock()
	c.toolCache = make(map[string][]*mcpsdk.Tool)
	c.toolCacheMu.Unlock()
	return firstErr
}

// InvalidateToolCache drops the cached tool list for a server.
func (c *Client) InvalidateToolCache(serverName string) {
	c.toolCacheMu.Lock()
	delete(c.toolCache, serverName)
	c.toolCacheMu.Unlock()
}

// FailedServers returns a copy of the server->error map for servers that
// failed to initialize.
func (c *Client) FailedServers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.failedServers))
	for k, v := range c.failedServers {
		out[k] = v
	}
	return out
}
