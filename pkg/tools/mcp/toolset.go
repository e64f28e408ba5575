// Package mcp connects to MCP servers over stdio and exposes their tools to
// the router as plain callables.
package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vvoland/agentrt/pkg/config"
	"github.com/vvoland/agentrt/pkg/tools"
)

// Toolset is one stdio MCP server connection. Start launches the server
// process and performs the protocol handshake; Tools snapshots its tool
// listing into router-consumable form.
type Toolset struct {
	name       string
	command    string
	args       []string
	env        []string
	toolFilter []string
	parallel   bool

	mu           sync.Mutex
	session      *mcp.ClientSession
	instructions string
	started      bool
}

// NewToolset creates a toolset for one configured MCP server. Nothing is
// launched until Start.
func NewToolset(cfg config.MCPServerConfig) *Toolset {
	slog.Debug("Creating stdio MCP toolset", "server", cfg.Name, "command", cfg.Command, "args", cfg.Args)

	env := append(os.Environ(), cfg.Env...)

	return &Toolset{
		name:       cfg.Name,
		command:    cfg.Command,
		args:       cfg.Args,
		env:        env,
		toolFilter: cfg.ToolFilter,
		parallel:   cfg.Parallel,
	}
}

// Name returns the configured server name.
func (ts *Toolset) Name() string {
	return ts.name
}

// Start launches the server process and completes initialization. It is
// idempotent; concurrent callers serialize on the toolset lock.
func (ts *Toolset) Start(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return nil
	}

	err := ts.doStart(ctx)
	if err == nil {
		ts.started = true
	}
	return err
}

func (ts *Toolset) doStart(ctx context.Context) error {
	// The server connection outlives whatever request triggered its
	// creation; tie its lifetime to the toolset, not the caller.
	ctx = context.WithoutCancel(ctx)

	slog.Debug("Starting MCP toolset", "server", ts.name)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "agentrt",
		Version: "1.0.0",
	}, nil)

	const maxRetries = 3
	for attempt := 0; ; attempt++ {
		cmd := exec.Command(ts.command, ts.args...)
		cmd.Env = ts.env

		session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
		if err == nil {
			ts.session = session
			if result := session.InitializeResult(); result != nil {
				ts.instructions = result.Instructions
			}
			break
		}

		// Only retry when initialization failed while sending the
		// initialized notification; the server may still be finishing
		// its own async startup.
		if !isInitNotificationSendError(err) {
			// EOF means the server is unavailable or closed the
			// connection. Skip the toolset rather than failing the
			// whole session.
			if errors.Is(err, io.EOF) {
				slog.Debug("MCP server unavailable (EOF), skipping toolset", "server", ts.name)
				return nil
			}
			slog.Error("Failed to initialize MCP client", "server", ts.name, "error", err)
			return fmt.Errorf("failed to initialize MCP client: %w", err)
		}
		if attempt >= maxRetries {
			slog.Error("Failed to initialize MCP client after retries", "server", ts.name, "error", err)
			return fmt.Errorf("failed to initialize MCP client after retries: %w", err)
		}
		backoff := time.Duration(200*(attempt+1)) * time.Millisecond
		slog.Debug("MCP initialize failed to send initialized notification; retrying",
			"server", ts.name, "attempt", attempt+1, "backoff_ms", backoff.Milliseconds())
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("failed to initialize MCP client: %w", ctx.Err())
		}
	}

	slog.Debug("Started MCP toolset successfully", "server", ts.name)
	return nil
}

// Instructions returns the server-provided usage instructions, if any.
func (ts *Toolset) Instructions() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.instructions
}

// Tools lists the server's tools, applying the configured filter, in the
// form the router consumes. The listing is a snapshot; a server that changes
// its tools needs a new listing and a new router.
func (ts *Toolset) Tools(ctx context.Context) ([]tools.MCPTool, error) {
	ts.mu.Lock()
	session := ts.session
	started := ts.started
	ts.mu.Unlock()

	if !started {
		return nil, errors.New("toolset not started")
	}
	if session == nil {
		// Start succeeded but the server was unavailable.
		return nil, nil
	}

	slog.Debug("Listing MCP tools", "server", ts.name)

	var toolsList []tools.MCPTool
	for tool, err := range session.Tools(ctx, &mcp.ListToolsParams{}) {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}

		if len(ts.toolFilter) > 0 && !slices.Contains(ts.toolFilter, tool.Name) {
			continue
		}

		name := tool.Name
		toolsList = append(toolsList, tools.MCPTool{
			Server:      ts.name,
			Name:        name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
			Parallel:    ts.parallel,
			Call: func(ctx context.Context, rawArguments string) (string, error) {
				return ts.callTool(ctx, name, rawArguments)
			},
		})

		slog.Debug("Added MCP tool", "server", ts.name, "tool", name)
	}

	slog.Debug("Listed MCP tools", "server", ts.name, "count", len(toolsList))
	return toolsList, nil
}

func (ts *Toolset) callTool(ctx context.Context, toolName, rawArguments string) (string, error) {
	slog.Debug("Calling MCP tool", "server", ts.name, "tool", toolName, "arguments", rawArguments)

	ts.mu.Lock()
	session := ts.session
	ts.mu.Unlock()
	if session == nil {
		return "", errors.New("toolset not connected")
	}

	rawArguments = cmp.Or(rawArguments, "{}")
	var args map[string]any
	if err := json.Unmarshal([]byte(rawArguments), &args); err != nil {
		return "", fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	resp, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			slog.Debug("CallTool canceled by context", "tool", toolName)
			return "", err
		}
		slog.Error("Failed to call MCP tool", "server", ts.name, "tool", toolName, "error", err)
		return "", fmt.Errorf("failed to call tool: %w", err)
	}

	output := flattenContent(resp)
	if resp.IsError {
		return "", errors.New(output)
	}

	slog.Debug("MCP tool call completed", "server", ts.name, "tool", toolName, "output_length", len(output))
	return output, nil
}

// Stop closes the server connection. Safe to call on a never-started or
// already-stopped toolset.
func (ts *Toolset) Stop(ctx context.Context) error {
	ts.mu.Lock()
	session := ts.session
	ts.session = nil
	ts.started = false
	ts.mu.Unlock()

	if session == nil {
		return nil
	}

	slog.Debug("Stopping MCP toolset", "server", ts.name)

	if err := session.Close(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Error("Failed to stop MCP toolset", "server", ts.name, "error", err)
		return err
	}

	slog.Debug("Stopped MCP toolset successfully", "server", ts.name)
	return nil
}

// isInitNotificationSendError returns true if initialization failed while
// sending the notifications/initialized message to the server.
func isInitNotificationSendError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "failed to send initialized notification")
}

func flattenContent(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	// Some tools legitimately return nothing.
	return cmp.Or(sb.String(), "no output")
}
