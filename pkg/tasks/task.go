// Package tasks defines background session tasks and the manager that runs
// at most one task per kind on a session.
package tasks

import (
	"context"

	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
)

// Kind tags a task category. The manager allows one running task per kind.
type Kind string

const (
	// KindCompact is the session-compaction task.
	KindCompact Kind = "compact"
)

// SessionTask is a cancellable unit of background work bound to a session.
//
// Run must honor ctx cancellation and must not panic or leak errors: a
// failing task reports through the session's event stream and returns
// normally. The returned summary is empty when the task has nothing for the
// transcript.
type SessionTask interface {
	Kind() Kind
	Run(ctx context.Context, sess *session.Session, turn *session.TurnContext, input []protocol.UserInput) string
}
