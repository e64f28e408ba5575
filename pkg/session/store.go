package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vvoland/agentrt/pkg/chat"
)

var (
	ErrEmptyID  = errors.New("session ID cannot be empty")
	ErrNotFound = errors.New("session not found")
)

// Store defines the interface for session persistence.
type Store interface {
	// AddSession registers a session.
	AddSession(ctx context.Context, id string, createdAt time.Time) error

	// AddMessage appends a message to a session's history.
	AddMessage(ctx context.Context, sessionID string, msg chat.Message) error

	// AddSummary appends a compaction summary to a session.
	AddSummary(ctx context.Context, sessionID, summary string) error

	// Messages returns a session's full message history in insertion order.
	Messages(ctx context.Context, sessionID string) ([]chat.Message, error)

	// DeleteSession removes a session and its history.
	DeleteSession(ctx context.Context, id string) error
}

type memorySession struct {
	createdAt time.Time
	messages  []chat.Message
	summaries []string
}

// InMemoryStore is a Store for tests and ephemeral sessions.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*memorySession),
	}
}

func (s *InMemoryStore) AddSession(_ context.Context, id string, createdAt time.Time) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &memorySession{createdAt: createdAt}
	return nil
}

func (s *InMemoryStore) AddMessage(_ context.Context, sessionID string, msg chat.Message) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		// Lazy creation keeps callers from having to pre-register sessions
		// they only ever append to.
		sess = &memorySession{createdAt: time.Now()}
		s.sessions[sessionID] = sess
	}
	sess.messages = append(sess.messages, msg)
	return nil
}

func (s *InMemoryStore) AddSummary(_ context.Context, sessionID, summary string) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.summaries = append(sess.summaries, summary)
	return nil
}

func (s *InMemoryStore) Messages(_ context.Context, sessionID string) ([]chat.Message, error) {
	if sessionID == "" {
		return nil, ErrEmptyID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]chat.Message, len(sess.messages))
	copy(out, sess.messages)
	return out, nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Summaries returns the compaction summaries recorded for a session. Test
// helper for the in-memory store only.
func (s *InMemoryStore) Summaries(sessionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]string, len(sess.summaries))
	copy(out, sess.summaries)
	return out
}
