package session

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/deepchat/server/fileutil"
)

// Persist schedules a snapshot write and returns immediately. Requests that
// arrive while a write is pending are coalesced into that write.
func (s *FileStore) Persist() {
	select {
	case s.saveCh <- struct{}{}:
	default:
	}
}

// Flush writes the current snapshot synchronously.
func (s *FileStore) Flush() error {
	return s.save()
}

// Close stops the background writer and flushes the final snapshot.
func (s *FileStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
	return s.save()
}

func (s *FileStore) persistLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case <-s.saveCh:
			if err := s.save(); err != nil {
				slog.Error("failed to persist sessions", "path", s.path, "error", err)
			}
		}
	}
}

func (s *FileStore) snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hf := historyFile{
		Version:  historyVersion,
		Sessions: make(map[string]Session, len(s.sessions)),
	}
	for id, sess := range s.sessions {
		hf.Sessions[id] = *sess
	}
	return json.MarshalIndent(hf, "", "  ")
}

func (s *FileStore) save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := s.snapshot()
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	return fileutil.WriteAtomic(s.path, data)
}
