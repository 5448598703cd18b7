// Package export writes sessions to files in JSON, JSONL, Markdown or YAML.
package export

import (
	"fmt"
	"io"

	"github.com/deepchat/server/session"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(sess session.Session, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, jsonl, md, yaml)", format)
	}
}

// document is the format-neutral shape shared by the JSON and YAML exporters.
type document struct {
	ID        string         `json:"id" yaml:"id"`
	Title     string         `json:"title" yaml:"title"`
	CreatedAt string         `json:"created_at" yaml:"created_at"`
	UpdatedAt string         `json:"updated_at" yaml:"updated_at"`
	Config    map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Messages  []message      `json:"messages" yaml:"messages"`
}

type message struct {
	Role      string `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

func newDocument(sess session.Session) document {
	doc := document{
		ID:        sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt.String(),
		UpdatedAt: sess.UpdatedAt.String(),
		Config:    sess.Config,
		Messages:  make([]message, 0, len(sess.Messages)),
	}
	for _, m := range sess.Messages {
		doc.Messages = append(doc.Messages, newMessage(m))
	}
	return doc
}

func newMessage(m session.Message) message {
	return message{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp}
}
