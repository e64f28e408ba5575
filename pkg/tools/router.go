package tools

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vvoland/agentrt/pkg/config"
	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
)

// shellToolAliases are the names under which the one logical shell capability
// may be exposed. Configuring any of them with parallel support grants it to
// all of them.
var shellToolAliases = []string{
	"shell",
	"container.exec",
	"local_shell",
	"shell_command",
	"exec_command",
}

// ToolRouter normalizes model-issued response items into tool calls,
// dispatches them through the registry and answers capability-policy
// questions. It is immutable after construction: the spec list and registry
// come from one configuration snapshot, so concurrent use needs no locking.
type ToolRouter struct {
	registry *Registry
	specs    []ConfiguredToolSpec
	tracer   trace.Tracer
}

// Option configures a router.
type Option func(*ToolRouter)

// WithTracer sets the tracer used to wrap dispatches in spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *ToolRouter) { r.tracer = tracer }
}

// NewRouter builds a router from static configuration plus a snapshot of the
// currently available MCP tools and dynamic tool declarations. A topology
// change requires building a new router.
func NewRouter(cfg *config.ToolsConfig, mcpTools []MCPTool, dynamicTools []DynamicToolSpec, opts ...Option) *ToolRouter {
	specs, registry := BuildSpecs(cfg, mcpTools, dynamicTools)
	r := &ToolRouter{
		registry: registry,
		specs:    specs,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Specs returns the externally-advertised tool specifications in
// construction order.
func (r *ToolRouter) Specs() []ToolSpec {
	specs := make([]ToolSpec, len(r.specs))
	for i, configured := range r.specs {
		specs[i] = configured.Spec
	}
	return specs
}

// SupportsParallel reports whether a tool may have multiple invocations in
// flight within one turn. Shell aliases share one capability: if any alias
// is configured with parallel support, every alias spelling gets it.
func (r *ToolRouter) SupportsParallel(toolName string) bool {
	if r.configuredToolSupportsParallel(toolName) {
		return true
	}

	if slices.Contains(shellToolAliases, toolName) {
		return slices.ContainsFunc(shellToolAliases, r.configuredToolSupportsParallel)
	}

	return false
}

func (r *ToolRouter) configuredToolSupportsParallel(toolName string) bool {
	for _, configured := range r.specs {
		if configured.SupportsParallelToolCalls && configured.Spec.Name == toolName {
			return true
		}
	}
	return false
}

// BuildToolCall classifies a response item into a normalized ToolCall.
// Items that are not tool calls return (nil, nil). A legacy local shell call
// without any usable correlation id fails with ErrMissingLocalShellCallID.
func (r *ToolRouter) BuildToolCall(sess *session.Session, item protocol.ResponseItem) (*ToolCall, error) {
	switch item.Type {
	case protocol.ResponseItemTypeFunctionCall:
		if server, tool, ok := sess.ParseMCPToolName(item.Name); ok {
			return &ToolCall{
				ToolName: item.Name,
				CallID:   item.CallID,
				Payload: McpPayload{
					Server:       server,
					Tool:         tool,
					RawArguments: item.Arguments,
				},
			}, nil
		}
		return &ToolCall{
			ToolName: item.Name,
			CallID:   item.CallID,
			Payload:  FunctionPayload{Arguments: item.Arguments},
		}, nil

	case protocol.ResponseItemTypeCustomToolCall:
		return &ToolCall{
			ToolName: item.Name,
			CallID:   item.CallID,
			Payload:  CustomPayload{Input: item.Input},
		}, nil

	case protocol.ResponseItemTypeLocalShellCall:
		callID := item.CallID
		if callID == "" {
			callID = item.ID
		}
		if callID == "" {
			return nil, ErrMissingLocalShellCallID
		}

		if item.Action == nil || item.Action.Type != protocol.LocalShellActionTypeExec || item.Action.Exec == nil {
			return nil, Fatalf("local shell call %s without an exec action", callID)
		}

		exec := item.Action.Exec
		permissions := protocol.SandboxPermissionsUseDefault
		return &ToolCall{
			ToolName: "local_shell",
			CallID:   callID,
			Payload: LocalShellPayload{
				Params: protocol.ShellToolCallParams{
					Command:            exec.Command,
					Workdir:            exec.WorkingDirectory,
					TimeoutMs:          exec.TimeoutMs,
					SandboxPermissions: &permissions,
					PrefixRule:         nil,
					Justification:      nil,
				},
			},
		}, nil

	default:
		return nil, nil
	}
}

// DispatchToolCall executes a call through the registry and folds the
// outcome into a conversation-visible item. Fatal registry errors propagate
// unchanged and abort the turn; every other failure converts into a
// failure-shaped item so the model observes the tool failed and the turn
// continues.
func (r *ToolRouter) DispatchToolCall(
	ctx context.Context,
	sess *session.Session,
	turn *session.TurnContext,
	tracker *session.TurnDiffTracker,
	call ToolCall,
) (protocol.ResponseInputItem, error) {
	_, payloadOutputsCustom := call.Payload.(CustomPayload)
	failureCallID := call.CallID

	ctx, span := r.startSpan(ctx, "router.tool.call", trace.WithAttributes(
		attribute.String("tool.name", call.ToolName),
		attribute.String("tool.call_id", call.CallID),
		attribute.String("session.id", sess.ID),
	))
	defer span.End()

	invocation := ToolInvocation{
		Session:  sess,
		Turn:     turn,
		Tracker:  tracker,
		CallID:   call.CallID,
		ToolName: call.ToolName,
		Payload:  call.Payload,
	}

	response, err := r.registry.Dispatch(ctx, invocation)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "tool call completed")
		return response, nil
	case IsFatal(err):
		span.RecordError(err)
		span.SetStatus(codes.Error, "fatal tool error")
		return protocol.ResponseInputItem{}, err
	default:
		span.SetStatus(codes.Ok, "tool call failed")
		return failureResponse(failureCallID, payloadOutputsCustom, err), nil
	}
}

// failureResponse renders a recoverable error in the same channel the model
// invoked: custom calls get a custom-shaped output, everything else a
// function output with an explicit failure flag.
func failureResponse(callID string, payloadOutputsCustom bool, err error) protocol.ResponseInputItem {
	message := err.Error()
	if payloadOutputsCustom {
		return protocol.CustomToolCallOutput(callID, message)
	}
	return protocol.FunctionCallOutput(callID, message, protocol.Bool(false))
}

func (r *ToolRouter) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if r.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return r.tracer.Start(ctx, name, opts...)
}
