package tools

import (
	"context"
	"fmt"

	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
)

// ToolInvocation bundles everything a handler needs to execute one call. The
// session, turn and tracker are shared by pointer; CallID and Payload are
// call-local.
type ToolInvocation struct {
	Session  *session.Session
	Turn     *session.TurnContext
	Tracker  *session.TurnDiffTracker
	CallID   string
	ToolName string
	Payload  ToolPayload
}

// Handler executes one tool invocation. A returned error is recoverable
// unless it is (or wraps) a FatalError.
type Handler func(ctx context.Context, inv ToolInvocation) (protocol.ResponseInputItem, error)

// Registry maps tool names to their handlers. Built once alongside the spec
// list and never mutated afterward, so concurrent dispatch needs no locking.
type Registry struct {
	handlers map[string]Handler
}

func newRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

func (r *Registry) register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Dispatch executes an invocation against its configured handler. An unknown
// tool is a recoverable error; a registered-but-nil handler is a contract
// violation and therefore fatal.
func (r *Registry) Dispatch(ctx context.Context, inv ToolInvocation) (protocol.ResponseInputItem, error) {
	handler, ok := r.handlers[inv.ToolName]
	if !ok {
		return protocol.ResponseInputItem{}, fmt.Errorf("unsupported tool: %s", inv.ToolName)
	}
	if handler == nil {
		return protocol.ResponseInputItem{}, Fatalf("tool %s registered without a handler", inv.ToolName)
	}
	return handler(ctx, inv)
}
