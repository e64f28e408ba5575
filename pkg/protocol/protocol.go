// Package protocol defines the wire-level item shapes exchanged with the
// model: response items coming out of a model turn and the input items the
// runtime feeds back into the conversation.
package protocol

// ResponseItemType discriminates the response item union.
type ResponseItemType string

const (
	ResponseItemTypeMessage        ResponseItemType = "message"
	ResponseItemTypeFunctionCall   ResponseItemType = "function_call"
	ResponseItemTypeCustomToolCall ResponseItemType = "custom_tool_call"
	ResponseItemTypeLocalShellCall ResponseItemType = "local_shell_call"
	ResponseItemTypeReasoning      ResponseItemType = "reasoning"
)

// ResponseItem is a single item from a model response. Exactly the fields for
// the given Type are populated.
type ResponseItem struct {
	Type ResponseItemType `json:"type"`

	// message / reasoning
	Content string `json:"content,omitempty"`

	// function_call and custom_tool_call
	Name   string `json:"name,omitempty"`
	CallID string `json:"call_id,omitempty"`

	// function_call
	Arguments string `json:"arguments,omitempty"`

	// custom_tool_call
	Input string `json:"input,omitempty"`

	// local_shell_call. ID is the fallback correlation id some models send
	// instead of CallID.
	ID     string            `json:"id,omitempty"`
	Action *LocalShellAction `json:"action,omitempty"`
}

// LocalShellActionType discriminates the legacy local shell action union.
// Exec is the only action the wire format defines today.
type LocalShellActionType string

const LocalShellActionTypeExec LocalShellActionType = "exec"

// LocalShellAction is the action attached to a legacy local_shell_call item.
type LocalShellAction struct {
	Type LocalShellActionType  `json:"type"`
	Exec *LocalShellExecAction `json:"exec,omitempty"`
}

// LocalShellExecAction carries the raw shell parameters of a legacy
// local_shell_call item.
type LocalShellExecAction struct {
	Command          []string `json:"command"`
	WorkingDirectory string   `json:"working_directory,omitempty"`
	TimeoutMs        *int64   `json:"timeout_ms,omitempty"`
}

// SandboxPermissions selects the sandbox policy a shell invocation runs under.
type SandboxPermissions string

const (
	SandboxPermissionsUseDefault SandboxPermissions = "use_default"
	SandboxPermissionsFullAccess SandboxPermissions = "full_access"
)

// ShellToolCallParams is the normalized form of a shell invocation, shared by
// the legacy local shell path and the configured shell tool.
type ShellToolCallParams struct {
	Command            []string            `json:"command"`
	Workdir            string              `json:"workdir,omitempty"`
	TimeoutMs          *int64              `json:"timeout_ms,omitempty"`
	SandboxPermissions *SandboxPermissions `json:"sandbox_permissions,omitempty"`
	PrefixRule         *string             `json:"prefix_rule,omitempty"`
	Justification      *string             `json:"justification,omitempty"`
}

// ResponseInputItemType discriminates the input item union.
type ResponseInputItemType string

const (
	ResponseInputItemTypeFunctionCallOutput   ResponseInputItemType = "function_call_output"
	ResponseInputItemTypeCustomToolCallOutput ResponseInputItemType = "custom_tool_call_output"
	ResponseInputItemTypeMcpToolCallOutput    ResponseInputItemType = "mcp_tool_call_output"
)

// FunctionCallOutputPayload is the body of a function_call_output item.
// Success is a tri-state: nil means unreported, false marks an explicit tool
// failure the model should see.
type FunctionCallOutputPayload struct {
	Body    string `json:"body"`
	Success *bool  `json:"success,omitempty"`
}

// ResponseInputItem is a conversation-visible tool result fed back to the
// model. The CallID correlates it with the originating call and must be
// carried verbatim.
type ResponseInputItem struct {
	Type   ResponseInputItemType `json:"type"`
	CallID string                `json:"call_id"`

	// function_call_output / mcp_tool_call_output
	Output *FunctionCallOutputPayload `json:"output,omitempty"`

	// custom_tool_call_output
	CustomOutput string `json:"custom_output,omitempty"`
}

// FunctionCallOutput builds a function-shaped output item.
func FunctionCallOutput(callID, body string, success *bool) ResponseInputItem {
	return ResponseInputItem{
		Type:   ResponseInputItemTypeFunctionCallOutput,
		CallID: callID,
		Output: &FunctionCallOutputPayload{Body: body, Success: success},
	}
}

// CustomToolCallOutput builds a custom-shaped output item.
func CustomToolCallOutput(callID, output string) ResponseInputItem {
	return ResponseInputItem{
		Type:         ResponseInputItemTypeCustomToolCallOutput,
		CallID:       callID,
		CustomOutput: output,
	}
}

// UserInput is a single piece of user-provided input attached to a turn or a
// background task.
type UserInput struct {
	Text string `json:"text"`
}

// Bool returns a pointer to b, for the Success tri-state.
func Bool(b bool) *bool { return &b }
