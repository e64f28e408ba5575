// Package runtime orchestrates a turn: it normalizes the model's response
// items into tool calls, executes them with the configured parallelism and
// feeds the results back into the conversation. Background work such as
// compaction runs through the task manager.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vvoland/agentrt/pkg/events"
	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
	"github.com/vvoland/agentrt/pkg/tasks"
	"github.com/vvoland/agentrt/pkg/tools"
)

// Runtime executes the tool calls of a turn and manages background tasks.
type Runtime struct {
	router *tools.ToolRouter
	tasks  *tasks.Manager
}

// New creates a runtime around a constructed router.
func New(router *tools.ToolRouter) *Runtime {
	return &Runtime{
		router: router,
		tasks:  tasks.NewManager(),
	}
}

// Router exposes the underlying router, mainly for advertising tool specs.
func (rt *Runtime) Router() *tools.ToolRouter {
	return rt.router
}

// ExecuteToolCalls normalizes and runs every tool call among the response
// items, returning the results in item order. Consecutive calls whose tools
// support parallel invocation run concurrently; everything else runs
// serially. A fatal error aborts the turn immediately.
func (rt *Runtime) ExecuteToolCalls(
	ctx context.Context,
	sess *session.Session,
	turn *session.TurnContext,
	tracker *session.TurnDiffTracker,
	items []protocol.ResponseItem,
) ([]protocol.ResponseInputItem, error) {
	var calls []tools.ToolCall
	for _, item := range items {
		call, err := rt.router.BuildToolCall(sess, item)
		if err != nil {
			return nil, err
		}
		if call == nil {
			continue
		}
		calls = append(calls, *call)
	}
	if len(calls) == 0 {
		return nil, nil
	}

	outputs := make([]protocol.ResponseInputItem, len(calls))

	for start := 0; start < len(calls); {
		if !rt.router.SupportsParallel(calls[start].ToolName) {
			response, err := rt.dispatch(ctx, sess, turn, tracker, calls[start])
			if err != nil {
				return nil, err
			}
			outputs[start] = response
			start++
			continue
		}

		// Maximal run of parallel-capable calls.
		end := start + 1
		for end < len(calls) && rt.router.SupportsParallel(calls[end].ToolName) {
			end++
		}

		group, groupCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			group.Go(func() error {
				response, err := rt.dispatch(groupCtx, sess, turn, tracker, calls[i])
				if err != nil {
					return err
				}
				outputs[i] = response
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
		start = end
	}

	return outputs, nil
}

func (rt *Runtime) dispatch(
	ctx context.Context,
	sess *session.Session,
	turn *session.TurnContext,
	tracker *session.TurnDiffTracker,
	call tools.ToolCall,
) (protocol.ResponseInputItem, error) {
	slog.Debug("Executing tool call", "tool", call.ToolName, "call_id", call.CallID, "session_id", sess.ID)
	sess.SendEvent(ctx, events.ToolCall(call.ToolName, call.CallID))

	start := time.Now()
	response, err := rt.router.DispatchToolCall(ctx, sess, turn, tracker, call)
	sess.Telemetry().RecordToolCall(ctx, call.ToolName, time.Since(start), err)

	if err != nil {
		slog.Error("Tool call failed fatally", "tool", call.ToolName, "call_id", call.CallID, "error", err)
		return protocol.ResponseInputItem{}, err
	}

	sess.SendEvent(ctx, events.ToolCallResponse(call.ToolName, call.CallID, responseBody(response)))
	return response, nil
}

func responseBody(item protocol.ResponseInputItem) string {
	if item.Output != nil {
		return item.Output.Body
	}
	return item.CustomOutput
}

// Compact starts a background compaction of the session. At most one
// compaction runs at a time; a second request aborts the first.
func (rt *Runtime) Compact(ctx context.Context, sess *session.Session, turn *session.TurnContext, input []protocol.UserInput) {
	rt.tasks.Spawn(ctx, tasks.CompactTask{}, sess, turn, input)
}

// AbortTasks cancels every running background task and waits for them.
func (rt *Runtime) AbortTasks() {
	rt.tasks.AbortAll()
}
