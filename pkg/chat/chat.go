// Package chat holds the provider-neutral conversation message model.
package chat

import "time"

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Message is a single conversation message.
type Message struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	CreatedAt  string      `json:"created_at,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role MessageRole, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}
