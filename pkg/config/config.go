// Package config loads and validates the static runtime configuration: the
// model provider, the builtin shell tool and the MCP servers to connect.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the full static configuration snapshot. The router and registry
// are built from one of these plus the runtime tool listings; a topology
// change requires a rebuild, there is no incremental update path.
type Config struct {
	Model     ModelConfig `yaml:"model"`
	Tools     ToolsConfig `yaml:"tools,omitempty"`
	SessionDB string      `yaml:"session_db,omitempty"`
	Telemetry *bool       `yaml:"telemetry,omitempty"`
}

// ModelConfig selects and parameterizes the model provider.
type ModelConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`

	// RemoteCompaction opts the provider into server-side context
	// compaction. Only honored by providers that support it.
	RemoteCompaction bool `yaml:"remote_compaction,omitempty"`
}

// ToolsConfig describes the statically configured tools.
type ToolsConfig struct {
	Shell      ShellConfig       `yaml:"shell,omitempty"`
	MCPServers []MCPServerConfig `yaml:"mcp_servers,omitempty"`
}

// ShellConfig configures the builtin shell tool.
type ShellConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// Parallel permits concurrent in-flight shell invocations within a
	// turn. The grant extends to every alias of the shell tool.
	Parallel bool `yaml:"parallel,omitempty"`

	// DefaultTimeoutMs bounds shell commands that carry no explicit timeout.
	DefaultTimeoutMs int64 `yaml:"default_timeout_ms,omitempty"`
}

// MCPServerConfig describes one MCP server launched over stdio.
type MCPServerConfig struct {
	Name       string   `yaml:"name"`
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args,omitempty"`
	Env        []string `yaml:"env,omitempty"`
	ToolFilter []string `yaml:"tool_filter,omitempty"`
	Parallel   bool     `yaml:"parallel,omitempty"`
}

// Reader abstracts the configuration source.
type Reader interface {
	Read(ctx context.Context) ([]byte, error)
}

// FileReader reads configuration from a file path.
type FileReader struct {
	Path string
}

func (r FileReader) Read(context.Context) ([]byte, error) {
	return os.ReadFile(r.Path)
}

// Load reads, parses and validates a configuration.
func Load(ctx context.Context, source Reader) (*Config, error) {
	data, err := source.Read(ctx)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file\n%s", yaml.FormatError(err, true, true))
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if cfg.Model.Model == "" {
		return fmt.Errorf("model.model is required")
	}
	seen := make(map[string]bool, len(cfg.Tools.MCPServers))
	for _, server := range cfg.Tools.MCPServers {
		if server.Name == "" {
			return fmt.Errorf("mcp server without a name")
		}
		if server.Command == "" {
			return fmt.Errorf("mcp server %q without a command", server.Name)
		}
		if seen[server.Name] {
			return fmt.Errorf("duplicate mcp server name %q", server.Name)
		}
		seen[server.Name] = true
	}
	return nil
}

// TelemetryEnabled reports whether telemetry is on. Defaults to enabled.
func (c *Config) TelemetryEnabled() bool {
	return c.Telemetry == nil || *c.Telemetry
}
