// Package session holds the per-conversation state shared by every tool call
// and background task within a turn: the message history, the MCP tool name
// table, the event stream and the telemetry handle.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vvoland/agentrt/pkg/chat"
	"github.com/vvoland/agentrt/pkg/events"
	"github.com/vvoland/agentrt/pkg/telemetry"
)

// Session is a capability bundle shared by pointer across every concurrently
// running tool call and task within a turn. It is read-mostly; the few
// mutable parts are guarded internally so callers never take locks.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	messages []chat.Message
	mcpTools map[string]mcpToolRef

	events    chan<- events.Event
	telemetry *telemetry.Client
	store     Store
}

type mcpToolRef struct {
	server string
	tool   string
}

// Option configures a new session.
type Option func(*Session)

// WithEventChannel sets the channel session events are delivered on.
func WithEventChannel(ch chan<- events.Event) Option {
	return func(s *Session) { s.events = ch }
}

// WithTelemetry sets the telemetry client used for usage counters.
func WithTelemetry(client *telemetry.Client) Option {
	return func(s *Session) { s.telemetry = client }
}

// WithStore sets the store the session persists itself to.
func WithStore(store Store) Option {
	return func(s *Session) { s.store = store }
}

// New creates a session with a fresh id.
func New(opts ...Option) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		mcpTools:  make(map[string]mcpToolRef),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterMCPTool maps an advertised tool name to its MCP server and tool.
// The table is populated while the router is being constructed and read-only
// afterward.
func (s *Session) RegisterMCPTool(name, server, tool string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mcpTools[name] = mcpToolRef{server: server, tool: tool}
}

// ParseMCPToolName resolves an advertised tool name to its MCP server and
// tool pair. ok is false for names that are not MCP tools.
func (s *Session) ParseMCPToolName(name string) (server, tool string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.mcpTools[name]
	return ref.server, ref.tool, ok
}

// SendEvent delivers an event to the session's event stream. Best effort:
// with no channel configured, or when the context is done first, the event is
// dropped with a debug log.
func (s *Session) SendEvent(ctx context.Context, event events.Event) {
	if s.events == nil {
		slog.Debug("Dropping session event: no event channel configured", "session_id", s.ID)
		return
	}
	select {
	case s.events <- event:
	case <-ctx.Done():
		slog.Debug("Dropping session event: context done", "session_id", s.ID)
	}
}

// Telemetry returns the session's telemetry client, which may be nil.
func (s *Session) Telemetry() *telemetry.Client {
	return s.telemetry
}

// AddMessage appends a message to the conversation and persists it when a
// store is configured.
func (s *Session) AddMessage(ctx context.Context, msg chat.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.AddMessage(ctx, s.ID, msg); err != nil {
			slog.Debug("Failed to persist session message", "session_id", s.ID, "error", err)
		}
	}
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ReplaceHistory swaps the conversation for its compacted form: a single
// summary message. The store keeps the full original history.
func (s *Session) ReplaceHistory(summary chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []chat.Message{summary}
}

// CompactHistory replaces the conversation with the summary and records the
// summary in the store when one is configured.
func (s *Session) CompactHistory(ctx context.Context, summary string) {
	s.ReplaceHistory(chat.NewMessage(chat.MessageRoleAssistant, summary))

	if s.store != nil {
		if err := s.store.AddSummary(ctx, s.ID, summary); err != nil {
			slog.Debug("Failed to persist session summary", "session_id", s.ID, "error", err)
		}
	}
}
