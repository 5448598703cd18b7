package chat

import (
	"github.com/deepchat/server/config"
	"github.com/deepchat/server/session"
	"github.com/deepchat/server/upstream"
)

// BuildContext assembles the prompt for one turn: the system prompt, the
// trailing history and the new user text.
//
// sess is expected to already hold the new user message as its last entry;
// that entry is dropped from history because userText is appended
// separately. A ContextLimit of zero or less keeps the whole history.
// Stored roles are passed through as-is.
func BuildContext(sess session.Session, userText string, eff config.Effective) []upstream.Message {
	history := sess.Messages
	if n := len(history); n > 0 && history[n-1].Role == session.RoleUser {
		history = history[:n-1]
	}
	if eff.ContextLimit > 0 && len(history) > eff.ContextLimit {
		history = history[len(history)-eff.ContextLimit:]
	}

	msgs := make([]upstream.Message, 0, len(history)+2)
	msgs = append(msgs, upstream.Message{Role: string(session.RoleSystem), Content: eff.SystemPrompt})
	for _, m := range history {
		msgs = append(msgs, upstream.Message{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, upstream.Message{Role: string(session.RoleUser), Content: userText})
	return msgs
}
