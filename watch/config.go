package watch

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/deepchat/server/config"
	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 100 * time.Millisecond

// ConfigWatcher reloads the global config when its file changes on disk and
// notifies subscribers. The parent directory is watched because saves
// replace the file by rename.
type ConfigWatcher struct {
	*hub
	store   *config.Store
	watcher *fsnotify.Watcher

	timerMu sync.Mutex
	timer   *time.Timer
}

func NewConfigWatcher(store *config.Store) *ConfigWatcher {
	return &ConfigWatcher{
		hub:   newHub("config.changed", "cfg"),
		store: store,
	}
}

func (w *ConfigWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.store.Path())); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	go w.eventLoop()
	slog.Info("ConfigWatcher started", "path", w.store.Path())
	return nil
}

func (w *ConfigWatcher) Stop() {
	w.stop()
	if w.watcher != nil {
		w.watcher.Close()
	}

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerMu.Unlock()

	slog.Info("ConfigWatcher stopped")
}

// Subscribe registers a subscriber and returns its ID with the current
// config.
func (w *ConfigWatcher) Subscribe(conn Notifier, connID string) (string, config.Config) {
	id := w.add(conn, connID)
	slog.Debug("config subscription added", "watchId", id, "connId", connID)
	return id, w.store.Get()
}

func (w *ConfigWatcher) Unsubscribe(id string) {
	w.remove(id)
}

func (w *ConfigWatcher) eventLoop() {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-w.done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", "error", err)
		}
	}
}

func (w *ConfigWatcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceInterval, w.reload)
}

func (w *ConfigWatcher) reload() {
	if w.stopped() {
		return
	}
	cfg, err := w.store.Reload()
	if err != nil {
		slog.Warn("failed to reload config, keeping previous", "path", w.store.Path(), "error", err)
		return
	}

	n := w.broadcast(func(subID string) any {
		return ConfigChangedParams{ID: subID, Config: cfg}
	})
	slog.Info("config reloaded", "subscribers", n)
}

type ConfigChangedParams struct {
	ID     string        `json:"id"`
	Config config.Config `json:"config"`
}
