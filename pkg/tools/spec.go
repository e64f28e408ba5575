package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vvoland/agentrt/pkg/config"
	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/tools/builtin"
)

var shellParameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"command": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "The command to execute as an argv vector",
		},
		"workdir": map[string]any{
			"type":        "string",
			"description": "The working directory to execute the command in",
		},
		"timeout_ms": map[string]any{
			"type":        "integer",
			"description": "Maximum execution time in milliseconds",
		},
	},
	"required": []string{"command"},
}

// BuildSpecs assembles the configured tool spec list and its registry from
// one configuration snapshot, the MCP tool listing taken at construction
// time and any dynamic tool declarations. Specs are ordered: shell first,
// then MCP tools, then dynamic tools.
func BuildSpecs(cfg *config.ToolsConfig, mcpTools []MCPTool, dynamicTools []DynamicToolSpec) ([]ConfiguredToolSpec, *Registry) {
	var specs []ConfiguredToolSpec
	registry := newRegistry()

	if cfg != nil && cfg.Shell.Enabled {
		specs = append(specs, ConfiguredToolSpec{
			Spec: ToolSpec{
				Name:        "shell",
				Description: "Executes the given command in the user's environment.",
				Parameters:  shellParameters,
			},
			SupportsParallelToolCalls: cfg.Shell.Parallel,
		})
		handler := shellHandler(builtin.NewShellExecutor(cfg.Shell.DefaultTimeoutMs))
		registry.register("shell", handler)
		// Legacy local_shell_call items dispatch under this alias.
		registry.register("local_shell", handler)
	}

	for _, tool := range mcpTools {
		name := QualifiedMCPName(tool.Server, tool.Name)
		specs = append(specs, ConfiguredToolSpec{
			Spec: ToolSpec{
				Name:        name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
			SupportsParallelToolCalls: tool.Parallel,
		})
		registry.register(name, mcpHandler(tool))
	}

	for _, tool := range dynamicTools {
		specs = append(specs, ConfiguredToolSpec{
			Spec: ToolSpec{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
			SupportsParallelToolCalls: tool.Parallel,
		})
		registry.register(tool.Name, dynamicHandler(tool))
	}

	return specs, registry
}

// QualifiedMCPName is the advertised name of a tool living on an MCP server.
func QualifiedMCPName(server, tool string) string {
	return server + "__" + tool
}

func shellHandler(executor *builtin.ShellExecutor) Handler {
	return func(ctx context.Context, inv ToolInvocation) (protocol.ResponseInputItem, error) {
		var params protocol.ShellToolCallParams
		switch payload := inv.Payload.(type) {
		case LocalShellPayload:
			params = payload.Params
		case FunctionPayload:
			if err := json.Unmarshal([]byte(payload.Arguments), &params); err != nil {
				return protocol.ResponseInputItem{}, fmt.Errorf("invalid shell arguments: %w", err)
			}
		default:
			return protocol.ResponseInputItem{}, Fatalf("shell tool invoked with %T payload", inv.Payload)
		}

		var workdir string
		if inv.Turn != nil {
			workdir = inv.Turn.WorkingDir
		}
		output, err := executor.Exec(ctx, params, workdir)
		if err != nil {
			return protocol.ResponseInputItem{}, err
		}
		return protocol.FunctionCallOutput(inv.CallID, output, protocol.Bool(true)), nil
	}
}

func mcpHandler(tool MCPTool) Handler {
	return func(ctx context.Context, inv ToolInvocation) (protocol.ResponseInputItem, error) {
		payload, ok := inv.Payload.(McpPayload)
		if !ok {
			return protocol.ResponseInputItem{}, Fatalf("mcp tool invoked with %T payload", inv.Payload)
		}
		output, err := tool.Call(ctx, payload.RawArguments)
		if err != nil {
			return protocol.ResponseInputItem{}, fmt.Errorf("calling %s on %s: %w", payload.Tool, payload.Server, err)
		}
		return protocol.ResponseInputItem{
			Type:   protocol.ResponseInputItemTypeMcpToolCallOutput,
			CallID: inv.CallID,
			Output: &protocol.FunctionCallOutputPayload{Body: output, Success: protocol.Bool(true)},
		}, nil
	}
}

func dynamicHandler(tool DynamicToolSpec) Handler {
	if tool.Handler != nil {
		return tool.Handler
	}
	return func(_ context.Context, inv ToolInvocation) (protocol.ResponseInputItem, error) {
		return protocol.ResponseInputItem{}, fmt.Errorf("dynamic tool %s is not connected", inv.ToolName)
	}
}
