package watch

// Watcher defines the common lifecycle interface for all watchers.
// Subscribe is not included as each watcher returns a different snapshot of
// what it monitors.
type Watcher interface {
	Start() error
	Stop()
	Unsubscribe(id string)
	CleanupConnection(connID string) []*Subscription
}

var (
	_ Watcher = (*SessionListWatcher)(nil)
	_ Watcher = (*ConfigWatcher)(nil)
)
