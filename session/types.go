package session

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single committed entry of a conversation.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewMessage creates a Message stamped with the current local time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: Now().String()}
}

// Session is a persisted conversation thread.
type Session struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatedAt Timestamp      `json:"created_at"`
	UpdatedAt Timestamp      `json:"updated_at"`
	Messages  []Message      `json:"messages"`
	Config    map[string]any `json:"config"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	c := s
	c.Messages = slices.Clone(s.Messages)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	if s.Config != nil {
		c.Config = maps.Clone(s.Config)
	}
	return c
}

// Meta returns the session metadata without its messages.
func (s Session) Meta() SessionMeta {
	return SessionMeta{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Config:       maps.Clone(s.Config),
		MessageCount: len(s.Messages),
	}
}

// SessionMeta holds metadata for a chat session.
type SessionMeta struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	CreatedAt    Timestamp      `json:"created_at"`
	UpdatedAt    Timestamp      `json:"updated_at"`
	Config       map[string]any `json:"config"`
	MessageCount int            `json:"message_count"`
}

// Operation is the kind of change reported to an OnChangeListener.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// SessionChangeEvent describes a change to the session list.
type SessionChangeEvent struct {
	Op      Operation
	Session SessionMeta
}

// OnChangeListener receives session change events. It is called while the
// store holds its lock and must not block.
type OnChangeListener interface {
	OnSessionChange(event SessionChangeEvent)
}

// Layouts accepted when reading timestamps, after RFC 3339. Older history
// files carry zone-less ISO-8601 or Python's str(datetime) form.
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

// Timestamp is a time encoded as an ISO-8601 string. A value that cannot be
// parsed is kept verbatim and written back unchanged.
type Timestamp struct {
	time.Time
	raw string
}

// Now returns the current local time as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now()}
}

func (t Timestamp) String() string {
	if t.Time.IsZero() && t.raw != "" {
		return t.raw
	}
	return t.Format(time.RFC3339Nano)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON never fails: one bad timestamp must not make a whole history
// file unreadable.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		if string(data) != "null" {
			slog.Debug("ignoring non-string timestamp", "value", string(data))
		}
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range legacyLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	slog.Debug("keeping unparsable timestamp", "value", s)
	t.raw = s
	return nil
}
