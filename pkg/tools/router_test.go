package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvoland/agentrt/pkg/config"
	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
)

func parallelShellConfig(parallel bool) *config.ToolsConfig {
	return &config.ToolsConfig{
		Shell: config.ShellConfig{
			Enabled:  true,
			Parallel: parallel,
		},
	}
}

func TestSupportsParallelShellAliases(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(true), nil, nil)

	for _, alias := range []string{"shell", "container.exec", "local_shell", "shell_command", "exec_command"} {
		assert.True(t, router.SupportsParallel(alias), alias)
	}
	assert.False(t, router.SupportsParallel("read_file"))
}

func TestSupportsParallelShellSerial(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)

	for _, alias := range []string{"shell", "container.exec", "local_shell", "shell_command", "exec_command"} {
		assert.False(t, router.SupportsParallel(alias), alias)
	}
}

func TestSupportsParallelAliasGrantFromDynamicTool(t *testing.T) {
	t.Parallel()

	// Only one alias spelling is configured, but the grant covers all of
	// them.
	dynamic := []DynamicToolSpec{{
		Name:     "exec_command",
		Parallel: true,
	}}
	router := NewRouter(nil, nil, dynamic)

	assert.True(t, router.SupportsParallel("exec_command"))
	assert.True(t, router.SupportsParallel("shell"))
	assert.True(t, router.SupportsParallel("container.exec"))
}

func TestSupportsParallelNonAliasDoesNotLeak(t *testing.T) {
	t.Parallel()

	dynamic := []DynamicToolSpec{{
		Name:     "search",
		Parallel: true,
	}}
	router := NewRouter(parallelShellConfig(false), nil, dynamic)

	assert.True(t, router.SupportsParallel("search"))
	assert.False(t, router.SupportsParallel("shell"))
	assert.False(t, router.SupportsParallel("local_shell"))
}

func TestBuildToolCallFunction(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)
	sess := session.New()

	call, err := router.BuildToolCall(sess, protocol.ResponseItem{
		Type:      protocol.ResponseItemTypeFunctionCall,
		Name:      "read_file",
		CallID:    "call-1",
		Arguments: `{"path":"go.mod"}`,
	})
	require.NoError(t, err)
	require.NotNil(t, call)

	assert.Equal(t, "read_file", call.ToolName)
	assert.Equal(t, "call-1", call.CallID)
	assert.Equal(t, FunctionPayload{Arguments: `{"path":"go.mod"}`}, call.Payload)
}

func TestBuildToolCallFunctionResolvesMCP(t *testing.T) {
	t.Parallel()

	router := NewRouter(nil, nil, nil)
	sess := session.New()
	sess.RegisterMCPTool("docs__search", "docs", "search")

	call, err := router.BuildToolCall(sess, protocol.ResponseItem{
		Type:      protocol.ResponseItemTypeFunctionCall,
		Name:      "docs__search",
		CallID:    "call-2",
		Arguments: `{"query":"udiff"}`,
	})
	require.NoError(t, err)
	require.NotNil(t, call)

	assert.Equal(t, "docs__search", call.ToolName)
	assert.Equal(t, McpPayload{
		Server:       "docs",
		Tool:         "search",
		RawArguments: `{"query":"udiff"}`,
	}, call.Payload)
}

func TestBuildToolCallCustom(t *testing.T) {
	t.Parallel()

	router := NewRouter(nil, nil, nil)

	call, err := router.BuildToolCall(session.New(), protocol.ResponseItem{
		Type:   protocol.ResponseItemTypeCustomToolCall,
		Name:   "apply_patch",
		CallID: "call-3",
		Input:  "*** Begin Patch",
	})
	require.NoError(t, err)
	require.NotNil(t, call)

	assert.Equal(t, CustomPayload{Input: "*** Begin Patch"}, call.Payload)
}

func TestBuildToolCallLocalShell(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)
	timeout := int64(5000)

	call, err := router.BuildToolCall(session.New(), protocol.ResponseItem{
		Type:   protocol.ResponseItemTypeLocalShellCall,
		CallID: "call-4",
		ID:     "item-9",
		Action: &protocol.LocalShellAction{
			Type: protocol.LocalShellActionTypeExec,
			Exec: &protocol.LocalShellExecAction{
				Command:          []string{"ls", "-l"},
				WorkingDirectory: "/tmp",
				TimeoutMs:        &timeout,
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, call)

	// call_id wins over the item id when both are present.
	assert.Equal(t, "call-4", call.CallID)
	assert.Equal(t, "local_shell", call.ToolName)

	payload, ok := call.Payload.(LocalShellPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"ls", "-l"}, payload.Params.Command)
	assert.Equal(t, "/tmp", payload.Params.Workdir)
	require.NotNil(t, payload.Params.TimeoutMs)
	assert.Equal(t, timeout, *payload.Params.TimeoutMs)
	require.NotNil(t, payload.Params.SandboxPermissions)
	assert.Equal(t, protocol.SandboxPermissionsUseDefault, *payload.Params.SandboxPermissions)
	assert.Nil(t, payload.Params.PrefixRule)
	assert.Nil(t, payload.Params.Justification)
}

func TestBuildToolCallLocalShellFallsBackToItemID(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)

	call, err := router.BuildToolCall(session.New(), protocol.ResponseItem{
		Type: protocol.ResponseItemTypeLocalShellCall,
		ID:   "item-9",
		Action: &protocol.LocalShellAction{
			Type: protocol.LocalShellActionTypeExec,
			Exec: &protocol.LocalShellExecAction{Command: []string{"true"}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, "item-9", call.CallID)
}

func TestBuildToolCallLocalShellMissingID(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)

	call, err := router.BuildToolCall(session.New(), protocol.ResponseItem{
		Type: protocol.ResponseItemTypeLocalShellCall,
		Action: &protocol.LocalShellAction{
			Type: protocol.LocalShellActionTypeExec,
			Exec: &protocol.LocalShellExecAction{Command: []string{"true"}},
		},
	})
	require.ErrorIs(t, err, ErrMissingLocalShellCallID)
	assert.True(t, IsFatal(err))
	assert.Nil(t, call)
}

func TestBuildToolCallLocalShellMissingAction(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)

	call, err := router.BuildToolCall(session.New(), protocol.ResponseItem{
		Type:   protocol.ResponseItemTypeLocalShellCall,
		CallID: "call-5",
	})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Nil(t, call)
}

func TestBuildToolCallIgnoresNonToolItems(t *testing.T) {
	t.Parallel()

	router := NewRouter(nil, nil, nil)

	for _, itemType := range []protocol.ResponseItemType{
		protocol.ResponseItemTypeMessage,
		protocol.ResponseItemTypeReasoning,
	} {
		call, err := router.BuildToolCall(session.New(), protocol.ResponseItem{Type: itemType})
		require.NoError(t, err)
		assert.Nil(t, call, string(itemType))
	}
}

func TestDispatchToolCallSuccess(t *testing.T) {
	t.Parallel()

	dynamic := []DynamicToolSpec{{
		Name: "echo",
		Handler: func(_ context.Context, inv ToolInvocation) (protocol.ResponseInputItem, error) {
			payload := inv.Payload.(FunctionPayload)
			return protocol.FunctionCallOutput(inv.CallID, payload.Arguments, protocol.Bool(true)), nil
		},
	}}
	router := NewRouter(nil, nil, dynamic)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "echo",
		CallID:   "call-1",
		Payload:  FunctionPayload{Arguments: "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, protocol.ResponseInputItemTypeFunctionCallOutput, response.Type)
	assert.Equal(t, "call-1", response.CallID)
	require.NotNil(t, response.Output)
	assert.Equal(t, "hello", response.Output.Body)
}

func TestDispatchToolCallRecoverableFailure(t *testing.T) {
	t.Parallel()

	dynamic := []DynamicToolSpec{{
		Name: "flaky",
		Handler: func(context.Context, ToolInvocation) (protocol.ResponseInputItem, error) {
			return protocol.ResponseInputItem{}, errors.New("backend unavailable")
		},
	}}
	router := NewRouter(nil, nil, dynamic)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "flaky",
		CallID:   "call-2",
		Payload:  FunctionPayload{},
	})
	require.NoError(t, err)

	assert.Equal(t, protocol.ResponseInputItemTypeFunctionCallOutput, response.Type)
	assert.Equal(t, "call-2", response.CallID)
	require.NotNil(t, response.Output)
	assert.Equal(t, "backend unavailable", response.Output.Body)
	require.NotNil(t, response.Output.Success)
	assert.False(t, *response.Output.Success)
}

func TestDispatchToolCallCustomFailureShape(t *testing.T) {
	t.Parallel()

	dynamic := []DynamicToolSpec{{
		Name:   "apply_patch",
		Custom: true,
		Handler: func(context.Context, ToolInvocation) (protocol.ResponseInputItem, error) {
			return protocol.ResponseInputItem{}, errors.New("patch rejected")
		},
	}}
	router := NewRouter(nil, nil, dynamic)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "apply_patch",
		CallID:   "call-3",
		Payload:  CustomPayload{Input: "*** Begin Patch"},
	})
	require.NoError(t, err)

	// A custom call failed, so the failure must come back custom-shaped.
	assert.Equal(t, protocol.ResponseInputItemTypeCustomToolCallOutput, response.Type)
	assert.Equal(t, "call-3", response.CallID)
	assert.Equal(t, "patch rejected", response.CustomOutput)
	assert.Nil(t, response.Output)
}

func TestDispatchToolCallFatalPropagates(t *testing.T) {
	t.Parallel()

	dynamic := []DynamicToolSpec{{
		Name: "broken",
		Handler: func(context.Context, ToolInvocation) (protocol.ResponseInputItem, error) {
			return protocol.ResponseInputItem{}, Fatalf("invariant violated")
		},
	}}
	router := NewRouter(nil, nil, dynamic)

	_, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "broken",
		CallID:   "call-4",
		Payload:  FunctionPayload{},
	})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.EqualError(t, err, "invariant violated")
}

func TestDispatchToolCallUnknownTool(t *testing.T) {
	t.Parallel()

	router := NewRouter(nil, nil, nil)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "does_not_exist",
		CallID:   "call-5",
		Payload:  FunctionPayload{},
	})
	require.NoError(t, err)

	require.NotNil(t, response.Output)
	assert.Equal(t, "unsupported tool: does_not_exist", response.Output.Body)
	require.NotNil(t, response.Output.Success)
	assert.False(t, *response.Output.Success)
}

func TestSpecsOrderAndContent(t *testing.T) {
	t.Parallel()

	mcpTools := []MCPTool{{
		Server:      "docs",
		Name:        "search",
		Description: "Search the docs",
	}}
	dynamic := []DynamicToolSpec{{
		Name:        "apply_patch",
		Description: "Apply a patch",
		Custom:      true,
	}}
	router := NewRouter(parallelShellConfig(false), mcpTools, dynamic)

	specs := router.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "shell", specs[0].Name)
	assert.Equal(t, "docs__search", specs[1].Name)
	assert.Equal(t, "apply_patch", specs[2].Name)
}
