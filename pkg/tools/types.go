package tools

import "context"

// ToolSpec is the externally-advertised description of a callable tool, in
// the shape model requests expect.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ConfiguredToolSpec pairs an advertised spec with its execution policy.
// Built once at router construction and never mutated.
type ConfiguredToolSpec struct {
	Spec                      ToolSpec
	SupportsParallelToolCalls bool
}

// MCPTool is one tool discovered on an MCP server, snapshotted at router
// construction time. Call executes the tool with raw JSON arguments and
// returns the flattened text output.
type MCPTool struct {
	Server      string
	Name        string
	Description string
	InputSchema any
	Parallel    bool
	Call        func(ctx context.Context, rawArguments string) (string, error)
}

// DynamicToolSpec declares a tool provided at runtime rather than from static
// configuration. Custom marks tools that take freeform string input instead
// of JSON arguments.
type DynamicToolSpec struct {
	Name        string
	Description string
	Parameters  any
	Custom      bool
	Parallel    bool
	Handler     Handler
}
