package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/deepchat/server/config"
	"github.com/deepchat/server/session"
	"github.com/deepchat/server/watch"
	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"
)

// RPCHandler serves session and config management as JSON-RPC 2.0 over
// WebSocket.
type RPCHandler struct {
	store          session.Store
	configs        *config.Store
	sessionList    *watch.SessionListWatcher
	configWatcher  *watch.ConfigWatcher
	devMode        bool
	originPatterns []string
}

func NewRPCHandler(store session.Store, configs *config.Store, sessionList *watch.SessionListWatcher, configWatcher *watch.ConfigWatcher, devMode bool, originPatterns []string) *RPCHandler {
	return &RPCHandler{
		store:          store,
		configs:        configs,
		sessionList:    sessionList,
		configWatcher:  configWatcher,
		devMode:        devMode,
		originPatterns: originPatterns,
	}
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.devMode,
		OriginPatterns:     h.originPatterns,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	h.handleConnection(r.Context(), conn)
}

func (h *RPCHandler) handleConnection(ctx context.Context, wsConn *websocket.Conn) {
	connID := uuid.Must(uuid.NewV7()).String()
	log := slog.With("connId", connID)
	log.Info("new rpc connection")

	stream := newWebSocketStream(wsConn)
	handler := &rpcMethodHandler{
		RPCHandler: h,
		connID:     connID,
		log:        log,
	}

	rpcConn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(handler))
	select {
	case <-rpcConn.DisconnectNotify():
	case <-ctx.Done():
		rpcConn.Close()
		<-rpcConn.DisconnectNotify()
	}

	removed := len(h.sessionList.CleanupConnection(connID))
	removed += len(h.configWatcher.CleanupConnection(connID))
	log.Info("rpc connection closed", "subscriptions", removed)
}

// rpcMethodHandler handles JSON-RPC method calls for one connection.
type rpcMethodHandler struct {
	*RPCHandler
	connID string
	log    *slog.Logger
}

func (h *rpcMethodHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h.log.Debug("received request", "method", req.Method, "id", req.ID)

	if req.Notif {
		return
	}

	switch req.Method {
	case "session.list":
		h.handleSessionList(ctx, conn, req)
	case "session.get":
		h.handleSessionGet(ctx, conn, req)
	case "session.create":
		h.handleSessionCreate(ctx, conn, req)
	case "session.delete":
		h.handleSessionDelete(ctx, conn, req)
	case "session.update_title":
		h.handleSessionUpdateTitle(ctx, conn, req)
	case "session.get_messages":
		h.handleSessionGetMessages(ctx, conn, req)
	case "session.set_messages":
		h.handleSessionSetMessages(ctx, conn, req)
	case "session.update_config":
		h.handleSessionUpdateConfig(ctx, conn, req)
	case "session.list.subscribe":
		h.handleSessionListSubscribe(ctx, conn, req)
	case "session.list.unsubscribe":
		h.handleSessionListUnsubscribe(ctx, conn, req)
	case "config.get":
		h.handleConfigGet(ctx, conn, req)
	case "config.set":
		h.handleConfigSet(ctx, conn, req)
	case "config.subscribe":
		h.handleConfigSubscribe(ctx, conn, req)
	case "config.unsubscribe":
		h.handleConfigUnsubscribe(ctx, conn, req)
	default:
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *rpcMethodHandler) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result any) {
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error("failed to send response", "method", req.Method, "error", err)
	}
}

func (h *rpcMethodHandler) replyError(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, code int64, message string) {
	err := &jsonrpc2.Error{
		Code:    code,
		Message: message,
	}
	if replyErr := conn.ReplyWithError(ctx, id, err); replyErr != nil {
		h.log.Error("failed to send error response", "error", replyErr)
	}
}

// replyStoreError maps a store error to a JSON-RPC error.
func (h *rpcMethodHandler) replyStoreError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "session not found")
		return
	}
	h.log.Error("store operation failed", "method", req.Method, "error", err)
	h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "internal error")
}

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errors.New("missing params")
	}
	return json.Unmarshal(*req.Params, v)
}

// webSocketStream adapts coder/websocket to jsonrpc2.ObjectStream.
type webSocketStream struct {
	conn *websocket.Conn
	mu   sync.Mutex // protects writes
}

func newWebSocketStream(conn *websocket.Conn) *webSocketStream {
	return &webSocketStream{conn: conn}
}

func (s *webSocketStream) ReadObject(v interface{}) error {
	_, data, err := s.conn.Read(context.Background())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *webSocketStream) WriteObject(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(context.Background(), websocket.MessageText, data)
}

func (s *webSocketStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

var _ jsonrpc2.ObjectStream = (*webSocketStream)(nil)
