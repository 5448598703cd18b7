package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/deepchat/server/chat"
	"github.com/google/uuid"
)

// requestQueueSize bounds turns waiting behind the one in flight.
const requestQueueSize = 16

// Handler serves the chat channel. Each connection gets a reader goroutine
// and one loop that runs its turns strictly in order.
type Handler struct {
	relay          *chat.Relay
	devMode        bool
	originPatterns []string
}

func NewHandler(relay *chat.Relay, devMode bool, originPatterns []string) *Handler {
	return &Handler{
		relay:          relay,
		devMode:        devMode,
		originPatterns: originPatterns,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.devMode,
		OriginPatterns:     h.originPatterns,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageSize)

	h.handleConnection(r.Context(), conn)
}

func (h *Handler) handleConnection(ctx context.Context, conn *websocket.Conn) {
	connID := uuid.Must(uuid.NewV7()).String()
	log := slog.With("connId", connID)
	log.Info("chat connection opened")

	// Cancelled when the client goes away; this releases any in-flight
	// upstream call.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	requests := make(chan inbound, requestQueueSize)
	var dropped atomic.Int64
	go h.readLoop(ctx, cancel, conn, requests, &dropped, log)

	emit := func(ctx context.Context, ev chat.Event) error {
		return writeJSON(ctx, conn, ev)
	}

	turns := 0
	for in := range requests {
		var err error
		if in.invalid {
			err = emit(ctx, chat.Event{Type: chat.EventError, Content: msgInvalidFormat})
		} else {
			turns++
			err = h.relay.HandleTurn(ctx, in.req, emit)
		}
		if err == nil {
			if n := dropped.Swap(0); n > 0 {
				log.Warn("dropped chat messages, queue full", "count", n)
				err = emit(ctx, chat.Event{Type: chat.EventError, Content: msgQueueFull})
			}
		}
		if err != nil {
			log.Info("stopping chat loop, client unreachable", "error", err)
			cancel()
			break
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
	log.Info("chat connection closed", "turns", turns)
}

// inbound is one decoded frame waiting for the turn loop. Malformed frames
// are queued too so their error events never interleave with a turn.
type inbound struct {
	req     chat.Request
	invalid bool
}

// readLoop decodes inbound frames until the connection fails. It never
// blocks on the queue, so a close frame is seen even while a turn is in
// flight; frames arriving with the queue full are counted in dropped.
func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- inbound, dropped *atomic.Int64, log *slog.Logger) {
	defer close(out)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch {
			case isNormalClose(err), errors.Is(err, context.Canceled):
				log.Info("client disconnected")
			default:
				log.Warn("chat read failed", "error", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in.req); err != nil {
			log.Debug("invalid chat message", "error", err, "len", len(data))
			in = inbound{invalid: true}
		}

		select {
		case out <- in:
		default:
			dropped.Add(1)
		}
	}
}
