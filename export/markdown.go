package export

import (
	"fmt"
	"io"

	"github.com/deepchat/server/session"
)

var roleLabels = map[session.Role]string{
	session.RoleSystem:    "System",
	session.RoleUser:      "User",
	session.RoleAssistant: "Assistant",
}

// MarkdownExporter exports sessions in Markdown format. Message content is
// written verbatim since assistant replies are already Markdown.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(sess session.Session, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# %s\n\n", sess.Title); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", sess.ID)
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", sess.CreatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(sess.Messages))

	for _, msg := range sess.Messages {
		label, ok := roleLabels[msg.Role]
		if !ok {
			label = string(msg.Role)
		}
		timestamp := ""
		if msg.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp)
		}
		if _, err := fmt.Fprintf(w, "---\n\n**%s:**%s\n\n%s\n\n", label, timestamp, msg.Content); err != nil {
			return err
		}
	}
	return nil
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}
