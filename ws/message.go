package ws

import (
	"context"
	"encoding/json"

	"github.com/coder/websocket"
)

const (
	msgInvalidFormat = "Invalid message format"
	msgQueueFull     = "Too many pending messages, message dropped"

	// maxMessageSize bounds one inbound frame; message histories sent over
	// the RPC channel can be large.
	maxMessageSize = 8 << 20
)

// DefaultOriginPatterns allows browser frontends served from the local
// machine on any port.
var DefaultOriginPatterns = []string{"localhost:*", "127.0.0.1:*", "[::1]:*"}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// isNormalClose reports whether err is the client going away rather than a
// transport failure.
func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return true
	}
	return false
}
