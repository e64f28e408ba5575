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

func TestShellToolDispatch(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "shell",
		CallID:   "call-1",
		Payload:  FunctionPayload{Arguments: `{"command":["echo","hi"]}`},
	})
	require.NoError(t, err)

	require.NotNil(t, response.Output)
	assert.Equal(t, "hi\n", response.Output.Body)
}

func TestShellToolDispatchLocalShellPayload(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "local_shell",
		CallID:   "call-2",
		Payload: LocalShellPayload{
			Params: protocol.ShellToolCallParams{Command: []string{"echo", "legacy"}},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, response.Output)
	assert.Equal(t, "legacy\n", response.Output.Body)
}

func TestShellToolDispatchInvalidArguments(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "shell",
		CallID:   "call-3",
		Payload:  FunctionPayload{Arguments: "not json"},
	})
	require.NoError(t, err)

	// Bad arguments are the model's mistake, reported as a failed call.
	require.NotNil(t, response.Output)
	require.NotNil(t, response.Output.Success)
	assert.False(t, *response.Output.Success)
	assert.Contains(t, response.Output.Body, "invalid shell arguments")
}

func TestShellToolDispatchPayloadMismatchIsFatal(t *testing.T) {
	t.Parallel()

	router := NewRouter(parallelShellConfig(false), nil, nil)

	_, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "shell",
		CallID:   "call-4",
		Payload:  CustomPayload{Input: "whatever"},
	})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestShellToolDisabled(t *testing.T) {
	t.Parallel()

	router := NewRouter(&config.ToolsConfig{}, nil, nil)
	assert.Empty(t, router.Specs())

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "shell",
		CallID:   "call-5",
		Payload:  FunctionPayload{Arguments: `{"command":["true"]}`},
	})
	require.NoError(t, err)
	require.NotNil(t, response.Output)
	assert.Equal(t, "unsupported tool: shell", response.Output.Body)
}

func TestMCPToolDispatch(t *testing.T) {
	t.Parallel()

	var gotArguments string
	mcpTools := []MCPTool{{
		Server: "docs",
		Name:   "search",
		Call: func(_ context.Context, rawArguments string) (string, error) {
			gotArguments = rawArguments
			return "three results", nil
		},
	}}
	router := NewRouter(nil, mcpTools, nil)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "docs__search",
		CallID:   "call-6",
		Payload: McpPayload{
			Server:       "docs",
			Tool:         "search",
			RawArguments: `{"query":"router"}`,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"query":"router"}`, gotArguments)
	assert.Equal(t, protocol.ResponseInputItemTypeMcpToolCallOutput, response.Type)
	require.NotNil(t, response.Output)
	assert.Equal(t, "three results", response.Output.Body)
}

func TestMCPToolDispatchFailure(t *testing.T) {
	t.Parallel()

	mcpTools := []MCPTool{{
		Server: "docs",
		Name:   "search",
		Call: func(context.Context, string) (string, error) {
			return "", errors.New("server gone")
		},
	}}
	router := NewRouter(nil, mcpTools, nil)

	response, err := router.DispatchToolCall(t.Context(), session.New(), &session.TurnContext{}, nil, ToolCall{
		ToolName: "docs__search",
		CallID:   "call-7",
		Payload:  McpPayload{Server: "docs", Tool: "search"},
	})
	require.NoError(t, err)

	require.NotNil(t, response.Output)
	require.NotNil(t, response.Output.Success)
	assert.False(t, *response.Output.Success)
	assert.Contains(t, response.Output.Body, "server gone")
}

func TestQualifiedMCPName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "docs__search", QualifiedMCPName("docs", "search"))
}
