// Package compact implements the two session-compaction strategies: local
// summarization through the model provider, and delegation to a backend that
// can compact the session server-side.
package compact

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vvoland/agentrt/pkg/chat"
	"github.com/vvoland/agentrt/pkg/events"
	"github.com/vvoland/agentrt/pkg/model/provider"
	"github.com/vvoland/agentrt/pkg/protocol"
	"github.com/vvoland/agentrt/pkg/session"
)

//go:embed prompts/compaction-system.txt
var compactionSystemPrompt string

//go:embed prompts/compaction-user.txt
var compactionUserPrompt string

// ShouldUseRemoteCompactTask reports whether the turn's provider can compact
// the session server-side.
func ShouldUseRemoteCompactTask(p provider.Provider) bool {
	compactor, ok := p.(provider.RemoteCompactor)
	return ok && compactor.SupportsRemoteCompaction()
}

// RunCompactTask summarizes the session locally: it sends the conversation
// plus the compaction prompt to the provider and replaces the history with
// the returned summary. Pending user input that has not entered the history
// yet is folded into the prompt so it survives compaction.
func RunCompactTask(ctx context.Context, sess *session.Session, turn *session.TurnContext, input []protocol.UserInput) error {
	slog.Debug("Generating summary for session", "session_id", sess.ID)

	sess.SendEvent(ctx, events.SessionCompaction(sess.ID, "started"))
	defer sess.SendEvent(ctx, events.SessionCompaction(sess.ID, "completed"))

	history := sess.Messages()
	if !hasConversationMessages(history) {
		return errors.New("session is empty, nothing to compact")
	}

	messages := make([]chat.Message, 0, len(history)+2)
	messages = append(messages, chat.NewMessage(chat.MessageRoleSystem, compactionSystemPrompt))
	messages = append(messages, history...)

	prompt := compactionUserPrompt
	for _, item := range input {
		if item.Text != "" {
			prompt += "\n\nPending user input (include verbatim in the summary): " + item.Text
		}
	}
	messages = append(messages, chat.NewMessage(chat.MessageRoleUser, prompt))

	summary, err := turn.Provider.CreateChatCompletion(ctx, messages)
	if err != nil {
		return fmt.Errorf("generating session summary: %w", err)
	}
	if summary == "" {
		return errors.New("summary model returned no content")
	}

	sess.CompactHistory(ctx, summary)

	slog.Debug("Generated session summary", "session_id", sess.ID, "summary_length", len(summary))
	return nil
}

// RunRemoteCompactTask asks the provider's backend to compact the session.
// The provider must implement RemoteCompactor; callers gate on
// ShouldUseRemoteCompactTask first.
func RunRemoteCompactTask(ctx context.Context, sess *session.Session, turn *session.TurnContext) error {
	compactor, ok := turn.Provider.(provider.RemoteCompactor)
	if !ok {
		return fmt.Errorf("provider %s does not support remote compaction", turn.Provider.ID())
	}

	slog.Debug("Requesting remote compaction", "session_id", sess.ID, "provider", turn.Provider.ID())

	sess.SendEvent(ctx, events.SessionCompaction(sess.ID, "started"))
	defer sess.SendEvent(ctx, events.SessionCompaction(sess.ID, "completed"))

	if err := compactor.CompactRemote(ctx, sess.ID); err != nil {
		return fmt.Errorf("remote compaction: %w", err)
	}
	return nil
}

func hasConversationMessages(messages []chat.Message) bool {
	for _, msg := range messages {
		if msg.Role != chat.MessageRoleSystem {
			return true
		}
	}
	return false
}
