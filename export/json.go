package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/deepchat/server/session"
)

// JSONExporter exports sessions in JSON format (pretty-printed)
type JSONExporter struct{}

func (e *JSONExporter) Export(sess session.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(newDocument(sess))
}

func (e *JSONExporter) Extension() string {
	return "json"
}

// JSONLExporter exports one message per line.
type JSONLExporter struct{}

func (e *JSONLExporter) Export(sess session.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, m := range sess.Messages {
		if err := enc.Encode(newMessage(m)); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
