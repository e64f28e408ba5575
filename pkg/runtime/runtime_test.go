package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
	"github.com/vvoland/agentrt/pkg/tools"
)

func echoTool(name string, parallel bool) tools.DynamicToolSpec {
	return tools.DynamicToolSpec{
		Name:     name,
		Parallel: parallel,
		Handler: func(_ context.Context, inv tools.ToolInvocation) (protocol.ResponseInputItem, error) {
			payload := inv.Payload.(tools.FunctionPayload)
			return protocol.FunctionCallOutput(inv.CallID, payload.Arguments, protocol.Bool(true)), nil
		},
	}
}

func functionCall(name, callID, arguments string) protocol.ResponseItem {
	return protocol.ResponseItem{
		Type:      protocol.ResponseItemTypeFunctionCall,
		Name:      name,
		CallID:    callID,
		Arguments: arguments,
	}
}

func TestExecuteToolCallsPreservesOrder(t *testing.T) {
	t.Parallel()

	rt := New(tools.NewRouter(nil, nil, []tools.DynamicToolSpec{
		echoTool("fast", true),
		echoTool("slow", false),
	}))

	items := []protocol.ResponseItem{
		functionCall("fast", "call-1", "one"),
		{Type: protocol.ResponseItemTypeMessage, Content: "thinking..."},
		functionCall("slow", "call-2", "two"),
		functionCall("fast", "call-3", "three"),
	}

	outputs, err := rt.ExecuteToolCalls(t.Context(), session.New(), &session.TurnContext{}, nil, items)
	require.NoError(t, err)
	require.Len(t, outputs, 3)

	assert.Equal(t, "call-1", outputs[0].CallID)
	assert.Equal(t, "one", outputs[0].Output.Body)
	assert.Equal(t, "call-2", outputs[1].CallID)
	assert.Equal(t, "two", outputs[1].Output.Body)
	assert.Equal(t, "call-3", outputs[2].CallID)
	assert.Equal(t, "three", outputs[2].Output.Body)
}

func TestExecuteToolCallsRunsParallelGroupConcurrently(t *testing.T) {
	t.Parallel()

	// Both handlers block until the other has started; serial execution
	// would deadlock here.
	var barrier sync.WaitGroup
	barrier.Add(2)
	meet := tools.DynamicToolSpec{
		Name:     "meet",
		Parallel: true,
		Handler: func(_ context.Context, inv tools.ToolInvocation) (protocol.ResponseInputItem, error) {
			barrier.Done()
			barrier.Wait()
			return protocol.FunctionCallOutput(inv.CallID, "met", protocol.Bool(true)), nil
		},
	}

	rt := New(tools.NewRouter(nil, nil, []tools.DynamicToolSpec{meet}))

	outputs, err := rt.ExecuteToolCalls(t.Context(), session.New(), &session.TurnContext{}, nil, []protocol.ResponseItem{
		functionCall("meet", "call-1", "{}"),
		functionCall("meet", "call-2", "{}"),
	})
	require.NoError(t, err)
	require.Len(t, outputs, 2)
}

func TestExecuteToolCallsRecoverableFailureContinues(t *testing.T) {
	t.Parallel()

	flaky := tools.DynamicToolSpec{
		Name: "flaky",
		Handler: func(context.Context, tools.ToolInvocation) (protocol.ResponseInputItem, error) {
			return protocol.ResponseInputItem{}, errors.New("transient")
		},
	}

	rt := New(tools.NewRouter(nil, nil, []tools.DynamicToolSpec{flaky, echoTool("echo", false)}))

	outputs, err := rt.ExecuteToolCalls(t.Context(), session.New(), &session.TurnContext{}, nil, []protocol.ResponseItem{
		functionCall("flaky", "call-1", "{}"),
		functionCall("echo", "call-2", "after"),
	})
	require.NoError(t, err)
	require.Len(t, outputs, 2)

	require.NotNil(t, outputs[0].Output)
	assert.Equal(t, "transient", outputs[0].Output.Body)
	require.NotNil(t, outputs[0].Output.Success)
	assert.False(t, *outputs[0].Output.Success)

	assert.Equal(t, "after", outputs[1].Output.Body)
}

func TestExecuteToolCallsFatalAborts(t *testing.T) {
	t.Parallel()

	broken := tools.DynamicToolSpec{
		Name: "broken",
		Handler: func(context.Context, tools.ToolInvocation) (protocol.ResponseInputItem, error) {
			return protocol.ResponseInputItem{}, tools.Fatalf("broken invariant")
		},
	}

	rt := New(tools.NewRouter(nil, nil, []tools.DynamicToolSpec{broken}))

	_, err := rt.ExecuteToolCalls(t.Context(), session.New(), &session.TurnContext{}, nil, []protocol.ResponseItem{
		functionCall("broken", "call-1", "{}"),
	})
	require.Error(t, err)
	assert.True(t, tools.IsFatal(err))
}

func TestExecuteToolCallsNormalizationErrorAborts(t *testing.T) {
	t.Parallel()

	rt := New(tools.NewRouter(nil, nil, nil))

	_, err := rt.ExecuteToolCalls(t.Context(), session.New(), &session.TurnContext{}, nil, []protocol.ResponseItem{
		{
			Type: protocol.ResponseItemTypeLocalShellCall,
			Action: &protocol.LocalShellAction{
				Type: protocol.LocalShellActionTypeExec,
				Exec: &protocol.LocalShellExecAction{Command: []string{"true"}},
			},
		},
	})
	require.ErrorIs(t, err, tools.ErrMissingLocalShellCallID)
}

func TestExecuteToolCallsNoToolItems(t *testing.T) {
	t.Parallel()

	rt := New(tools.NewRouter(nil, nil, nil))

	outputs, err := rt.ExecuteToolCalls(t.Context(), session.New(), &session.TurnContext{}, nil, []protocol.ResponseItem{
		{Type: protocol.ResponseItemTypeMessage, Content: "nothing to do"},
	})
	require.NoError(t, err)
	assert.Empty(t, outputs)
}
