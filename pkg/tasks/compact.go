package tasks

import (
	"context"
	"log/slog"

	"github.com/vvoland/agentrt/pkg/compact"
	"github.com/vvoland/agentrt/pkg/events"
	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
)

// CompactTask compacts a session's context in the background. The strategy
// is picked per run from the turn's provider: backends that compact
// server-side get the remote path, everything else summarizes locally.
type CompactTask struct{}

func (CompactTask) Kind() Kind {
	return KindCompact
}

// Run executes one compaction. Strategy failures surface as error events on
// the session stream; Run itself always returns normally and produces no
// transcript summary.
func (CompactTask) Run(ctx context.Context, sess *session.Session, turn *session.TurnContext, input []protocol.UserInput) string {
	if compact.ShouldUseRemoteCompactTask(turn.Provider) {
		if tel := sess.Telemetry(); tel != nil {
			tel.Counter(ctx, "agentrt.task.compact", 1, map[string]string{"type": "remote"})
		}
		if err := compact.RunRemoteCompactTask(ctx, sess, turn); err != nil {
			slog.Error("Remote compact task failed", "session_id", sess.ID, "error", err)
			sess.SendEvent(ctx, events.Error("Error running remote compact task: "+err.Error()))
		}
	} else {
		if tel := sess.Telemetry(); tel != nil {
			tel.Counter(ctx, "agentrt.task.compact", 1, map[string]string{"type": "local"})
		}
		if err := compact.RunCompactTask(ctx, sess, turn, input); err != nil {
			slog.Error("Local compact task failed", "session_id", sess.ID, "error", err)
			sess.SendEvent(ctx, events.Error("Error running local compact task: "+err.Error()))
		}
	}

	return ""
}
