package mcptools

import (
	"fmt"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TransportType selects how a declared MCP server is reached: transport
// type, endpoint, or command+args.
type TransportType string

// Transport type values.
const (
	TransportStdio TransportType = "stdio"
	TransportHTTP  TransportType = "http"
	TransportSSE   TransportType = "sse"
)

// ServerConfig is one entry of a profile's declared MCP server list.
type ServerConfig struct {
	Name           string
	Transport      TransportType
	Command        string
	Args           []string
	Env            map[string]string
	URL            string
	BearerToken    string
	BaseToolNames  []string // declared tool base names, used by the prompt builder
}

func createTransport(cfg ServerConfig) (mcpsdk.Transport, error) {
	switch cfg.Transport {
	case TransportStdio:
		return createStdioTransport(cfg)
	case TransportHTTP:
		return &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}, nil
	case TransportSSE:
		return &mcpsdk.SSEClientTransport{Endpoint: cfg.URL}, nil
	default:
		return nil, fmt.Errorf("mcptools: unsupported transport type %q", cfg.Transport)
	}
}

func createStdioTransport(cfg ServerConfig) (*mcpsdk.CommandTransport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("mcptools: stdio transport requires a command")
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	env := os.Environ()
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env
	return &mcpsdk.CommandTransport{Command: cmd}, nil
}
