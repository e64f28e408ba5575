package tools

import "github.com/vvoland/agentrt/pkg/protocol"

// ToolPayload is the normalized argument carrier of a tool call. It is a
// closed union: exactly the variants below exist, and handlers type-switch
// over them.
type ToolPayload interface {
	isToolPayload()
}

// McpPayload targets a tool living on an MCP server. RawArguments is the
// unparsed JSON argument object; the server parses it, not the router.
type McpPayload struct {
	Server       string
	Tool         string
	RawArguments string
}

// FunctionPayload carries raw JSON arguments for a non-MCP function tool.
type FunctionPayload struct {
	Arguments string
}

// CustomPayload carries freeform string input. Results for custom calls must
// come back custom-shaped, even failures.
type CustomPayload struct {
	Input string
}

// LocalShellPayload carries the normalized parameters of a legacy
// local_shell_call item.
type LocalShellPayload struct {
	Params protocol.ShellToolCallParams
}

func (McpPayload) isToolPayload()        {}
func (FunctionPayload) isToolPayload()   {}
func (CustomPayload) isToolPayload()     {}
func (LocalShellPayload) isToolPayload() {}

// ToolCall is one normalized, dispatchable tool invocation.
type ToolCall struct {
	ToolName string
	CallID   string
	Payload  ToolPayload
}
