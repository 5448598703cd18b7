package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

// notifyTimeout bounds one notification write to one subscriber.
const notifyTimeout = 5 * time.Second

// Notifier sends a JSON-RPC notification. *jsonrpc2.Conn satisfies it.
type Notifier interface {
	Notify(ctx context.Context, method string, params any, opts ...jsonrpc2.CallOption) error
}

// Subscription is one client's registration for a watcher's notifications.
type Subscription struct {
	ID     string
	ConnID string
	Conn   Notifier
}

// hub fans a single notification method out to its subscribers. A
// subscriber whose notify fails is dropped; its connection is gone and the
// RPC layer cleans up the rest when it notices.
type hub struct {
	method string
	prefix string

	mu     sync.RWMutex
	subs   map[string]*Subscription
	byConn map[string]map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func newHub(method, prefix string) *hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &hub{
		method: method,
		prefix: prefix,
		subs:   make(map[string]*Subscription),
		byConn: make(map[string]map[string]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// add registers conn and returns the new subscription id.
func (h *hub) add(conn Notifier, connID string) string {
	sub := &Subscription{ID: generateIDWithPrefix(h.prefix), ConnID: connID, Conn: conn}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub.ID] = sub
	ids, ok := h.byConn[connID]
	if !ok {
		ids = make(map[string]struct{})
		h.byConn[connID] = ids
	}
	ids[sub.ID] = struct{}{}
	return sub.ID
}

func (h *hub) remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(id)
}

func (h *hub) removeLocked(id string) bool {
	sub, ok := h.subs[id]
	if !ok {
		return false
	}
	delete(h.subs, id)
	if ids := h.byConn[sub.ConnID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(h.byConn, sub.ConnID)
		}
	}
	return true
}

// CleanupConnection drops every subscription owned by connID and returns
// them.
func (h *hub) CleanupConnection(connID string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := h.byConn[connID]
	removed := make([]*Subscription, 0, len(ids))
	for id := range ids {
		if sub, ok := h.subs[id]; ok {
			removed = append(removed, sub)
			h.removeLocked(id)
		}
	}
	if len(removed) > 0 {
		slog.Debug("cleaned up connection subscriptions", "method", h.method, "connId", connID, "count", len(removed))
	}
	return removed
}

// Len reports the number of live subscriptions.
func (h *hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// broadcast sends the hub's method to every subscriber, building params
// per subscription id, and returns how many deliveries succeeded.
func (h *hub) broadcast(params func(subID string) any) int {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		ctx, cancel := context.WithTimeout(h.ctx, notifyTimeout)
		err := sub.Conn.Notify(ctx, h.method, params(sub.ID))
		cancel()
		if err != nil {
			slog.Debug("dropping unreachable subscriber", "method", h.method, "watchId", sub.ID, "error", err)
			h.remove(sub.ID)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *hub) done() <-chan struct{} { return h.ctx.Done() }
func (h *hub) stopped() bool         { return h.ctx.Err() != nil }
func (h *hub) stop()                 { h.cancel() }
