package tasks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vvoland/agentrt/pkg/events"
	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
)

// Manager runs background session tasks, at most one per kind. Spawning a
// task while one of the same kind is running aborts the old one first.
type Manager struct {
	mu      sync.Mutex
	running map[Kind]*runningTask
}

type runningTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates an empty task manager.
func NewManager() *Manager {
	return &Manager{
		running: make(map[Kind]*runningTask),
	}
}

// Spawn starts a task in the background. A running task of the same kind is
// cancelled and awaited before the new one begins. The task outlives the
// caller's request; only Abort or AbortAll cancels it.
func (m *Manager) Spawn(ctx context.Context, task SessionTask, sess *session.Session, turn *session.TurnContext, input []protocol.UserInput) {
	kind := task.Kind()

	// Detach from the caller's deadline so the task survives the request
	// that triggered it; cancellation comes from the manager.
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	current := &runningTask{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	previous := m.running[kind]
	m.running[kind] = current
	m.mu.Unlock()

	if previous != nil {
		slog.Debug("Aborting running task before spawning replacement", "kind", kind)
		previous.cancel()
		<-previous.done
	}

	go func() {
		defer close(current.done)
		defer cancel()

		slog.Debug("Task started", "kind", kind, "session_id", sess.ID)
		sess.SendEvent(taskCtx, events.TaskStarted(string(kind)))

		summary := task.Run(taskCtx, sess, turn, input)

		sess.SendEvent(context.WithoutCancel(taskCtx), events.TaskFinished(string(kind), summary))
		slog.Debug("Task finished", "kind", kind, "session_id", sess.ID)

		m.mu.Lock()
		if m.running[kind] == current {
			delete(m.running, kind)
		}
		m.mu.Unlock()
	}()
}

// Abort cancels the running task of the given kind, if any, and waits for it
// to finish.
func (m *Manager) Abort(kind Kind) {
	m.mu.Lock()
	current := m.running[kind]
	m.mu.Unlock()

	if current == nil {
		return
	}
	current.cancel()
	<-current.done
}

// AbortAll cancels every running task and waits for them to finish.
func (m *Manager) AbortAll() {
	m.mu.Lock()
	tasks := make([]*runningTask, 0, len(m.running))
	for _, current := range m.running {
		tasks = append(tasks, current)
	}
	m.mu.Unlock()

	for _, current := range tasks {
		current.cancel()
	}
	for _, current := range tasks {
		<-current.done
	}
}
