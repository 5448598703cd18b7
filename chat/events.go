// Package chat runs a single chat turn: it builds the prompt, streams the
// provider response back to the caller and commits the outcome to the
// session store.
package chat

import "context"

type EventType string

const (
	EventError            EventType = "error"
	EventUserMessageSaved EventType = "user_message_saved"
	EventStream           EventType = "stream"
	EventDone             EventType = "done"
)

// Event is one outbound message on the chat channel.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// Request is one inbound chat turn. Config holds per-call overrides and is
// never persisted.
type Request struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Config    map[string]any `json:"config,omitempty"`
}

// EmitFunc delivers an event to the caller. A non-nil error means the caller
// can no longer be reached.
type EmitFunc func(ctx context.Context, ev Event) error

// User-facing texts.
const (
	MsgMissingParams   = "缺少必要参数"
	MsgSessionNotFound = "会话不存在"
	MsgInvalidConfig   = "无效的配置: "
	MsgUpstreamFailed  = "API 调用失败: "

	// FailurePrefix marks a persisted system message as an error.
	FailurePrefix = "❌ "
)
