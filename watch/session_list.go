package watch

import (
	"log/slog"

	"github.com/deepchat/server/session"
)

// SessionListWatcher notifies subscribers when the session list changes.
// Store events are queued on a channel so network I/O never happens under
// the store's lock.
type SessionListWatcher struct {
	*hub
	store   session.Store
	eventCh chan session.SessionChangeEvent
}

func NewSessionListWatcher(store session.Store) *SessionListWatcher {
	w := &SessionListWatcher{
		hub:     newHub("session.list.changed", "sl"),
		store:   store,
		eventCh: make(chan session.SessionChangeEvent, 64),
	}
	store.SetOnChangeListener(w)
	return w
}

func (w *SessionListWatcher) Start() error {
	go w.eventLoop()
	slog.Info("SessionListWatcher started")
	return nil
}

func (w *SessionListWatcher) Stop() {
	w.stop()
	slog.Info("SessionListWatcher stopped")
}

func (w *SessionListWatcher) eventLoop() {
	for {
		select {
		case <-w.done():
			return
		case event := <-w.eventCh:
			w.notifyChange(event)
		}
	}
}

func (w *SessionListWatcher) notifyChange(event session.SessionChangeEvent) {
	if w.Len() == 0 {
		return
	}

	n := w.broadcast(func(subID string) any {
		params := SessionListChangedParams{
			ID:        subID,
			Operation: string(event.Op),
		}
		if event.Op == session.OperationDelete {
			params.SessionID = event.Session.ID
		} else {
			meta := event.Session
			params.Session = &meta
		}
		return params
	})

	slog.Debug("notified session list change", "operation", event.Op, "subscribers", n)
}

// Subscribe registers a subscriber and returns the subscription ID along with
// the current session list.
func (w *SessionListWatcher) Subscribe(conn Notifier, connID string) (string, []session.SessionMeta) {
	// Register before listing so no change between the two is missed.
	id := w.add(conn, connID)

	sessions := w.store.List()
	slog.Debug("session list subscription added", "watchId", id, "connId", connID)
	return id, sessions
}

func (w *SessionListWatcher) Unsubscribe(id string) {
	if w.remove(id) {
		slog.Debug("session list subscription removed", "watchId", id)
	}
}

type SessionListChangedParams struct {
	ID        string               `json:"id"`
	Operation string               `json:"operation"`
	Session   *session.SessionMeta `json:"session,omitempty"`
	SessionID string               `json:"session_id,omitempty"`
}

// OnSessionChange implements session.OnChangeListener. It runs under the
// store's lock and must not block.
func (w *SessionListWatcher) OnSessionChange(event session.SessionChangeEvent) {
	if w.stopped() {
		return
	}

	// TODO: If buffer overflows, disconnect all subscribers to force re-sync.
	select {
	case w.eventCh <- event:
	default:
		slog.Warn("session list change event dropped (buffer full)", "operation", event.Op)
	}
}
