// Package events defines the session-visible event stream. Events are a
// closed set: each variant has a constructor and the consumer type-switches
// over them.
package events

// Event is a single entry on a session's event stream.
type Event interface {
	isEvent()
}

// ErrorEvent reports a recoverable failure to the session transcript. A
// failed background task surfaces as one of these, never as a crash.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func Error(message string) Event {
	return &ErrorEvent{
		Type:    "error",
		Message: message,
	}
}

func (e *ErrorEvent) isEvent() {}

// ToolCallEvent is sent when a tool call starts executing.
type ToolCallEvent struct {
	Type     string `json:"type"`
	ToolName string `json:"tool_name"`
	CallID   string `json:"call_id"`
}

func ToolCall(toolName, callID string) Event {
	return &ToolCallEvent{
		Type:     "tool_call",
		ToolName: toolName,
		CallID:   callID,
	}
}

func (e *ToolCallEvent) isEvent() {}

// ToolCallResponseEvent is sent when a tool call produced a result, including
// failure results rendered for the model.
type ToolCallResponseEvent struct {
	Type     string `json:"type"`
	ToolName string `json:"tool_name"`
	CallID   string `json:"call_id"`
	Response string `json:"response"`
}

func ToolCallResponse(toolName, callID, response string) Event {
	return &ToolCallResponseEvent{
		Type:     "tool_call_response",
		ToolName: toolName,
		CallID:   callID,
		Response: response,
	}
}

func (e *ToolCallResponseEvent) isEvent() {}

// TaskStartedEvent is sent when a background session task begins.
type TaskStartedEvent struct {
	Type     string `json:"type"`
	TaskKind string `json:"task_kind"`
}

func TaskStarted(kind string) Event {
	return &TaskStartedEvent{
		Type:     "task_started",
		TaskKind: kind,
	}
}

func (e *TaskStartedEvent) isEvent() {}

// TaskFinishedEvent is sent when a background session task completes,
// whether it produced a summary or not.
type TaskFinishedEvent struct {
	Type     string `json:"type"`
	TaskKind string `json:"task_kind"`
	Summary  string `json:"summary,omitempty"`
}

func TaskFinished(kind, summary string) Event {
	return &TaskFinishedEvent{
		Type:     "task_finished",
		TaskKind: kind,
		Summary:  summary,
	}
}

func (e *TaskFinishedEvent) isEvent() {}

// SessionCompactionEvent tracks compaction progress for a session.
type SessionCompactionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

func SessionCompaction(sessionID, status string) Event {
	return &SessionCompactionEvent{
		Type:      "session_compaction",
		SessionID: sessionID,
		Status:    status,
	}
}

func (e *SessionCompactionEvent) isEvent() {}
