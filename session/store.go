package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

const (
	historyVersion = 2

	defaultTitle = "新对话"
)

type Store interface {
	// Session access (memory only)
	List() []SessionMeta
	Get(sessionID string) (Session, bool)

	// Mutations; each one schedules a persist.
	Create(ctx context.Context) (Session, error)
	Upsert(ctx context.Context, sess Session) error
	Delete(ctx context.Context, sessionID string) error
	AppendMessage(ctx context.Context, sessionID string, msg Message) error
	SetMessages(ctx context.Context, sessionID string, messages []Message) error
	UpdateTitle(ctx context.Context, sessionID string, title string) error
	UpdateConfig(ctx context.Context, sessionID string, cfg map[string]any) error

	// Persistence
	Persist()
	Flush() error

	// Change notification
	SetOnChangeListener(listener OnChangeListener)
}

type historyFile struct {
	Version  int                `json:"version"`
	Sessions map[string]Session `json:"sessions"`
}

// FileStore keeps all sessions in memory and writes full snapshots to a
// single JSON file from a background goroutine.
//
// FileStore is NOT safe for multiple instances sharing the same file.
type FileStore struct {
	path     string
	mu       sync.RWMutex
	sessions map[string]*Session
	listener OnChangeListener

	writeMu   sync.Mutex
	saveCh    chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewFileStore loads the history file at path. A missing or unparsable file
// yields a store holding one empty default session.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	store := &FileStore{
		path:     path,
		sessions: make(map[string]*Session),
		saveCh:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	loaded, err := ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Info("no session history found, starting fresh", "path", path)
	case err != nil:
		slog.Warn("failed to load session history, starting fresh", "path", path, "error", err)
	}
	for id, sess := range loaded {
		sess := sess.Clone()
		sess.ID = id
		store.sessions[id] = &sess
	}
	if len(store.sessions) == 0 {
		sess := newSession(defaultTitle)
		store.sessions[sess.ID] = &sess
	}

	go store.persistLoop()
	return store, nil
}

// ReadFile reads a history file without starting a store.
func ReadFile(path string) (map[string]Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var hf historyFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return hf.Sessions, nil
}

func newSession(title string) Session {
	now := Now()
	return Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
}

func (s *FileStore) SetOnChangeListener(listener OnChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = listener
}

// notifyChange must be called with mu held.
func (s *FileStore) notifyChange(op Operation, sess *Session) {
	if s.listener != nil {
		s.listener.OnSessionChange(SessionChangeEvent{Op: op, Session: sess.Meta()})
	}
}

func (s *FileStore) List() []SessionMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]SessionMeta, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess.Meta())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt.Time)
	})

	return result
}

func (s *FileStore) Get(sessionID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return sess.Clone(), true
}

func (s *FileStore) Create(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	sess := newSession(defaultTitle + " " + Now().Format("15:04:05"))

	s.mu.Lock()
	stored := sess.Clone()
	s.sessions[sess.ID] = &stored
	s.notifyChange(OperationCreate, &stored)
	s.mu.Unlock()

	s.Persist()
	return sess, nil
}

func (s *FileStore) Upsert(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess.ID == "" {
		return errors.New("session id required")
	}

	s.mu.Lock()
	_, exists := s.sessions[sess.ID]
	stored := sess.Clone()
	s.sessions[sess.ID] = &stored
	if exists {
		s.notifyChange(OperationUpdate, &stored)
	} else {
		s.notifyChange(OperationCreate, &stored)
	}
	s.mu.Unlock()

	s.Persist()
	return nil
}

// Delete removes a session. The last remaining session is cleared instead,
// so the store never becomes empty.
func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if len(s.sessions) <= 1 {
		sess.Messages = []Message{}
		sess.UpdatedAt = Now()
		s.notifyChange(OperationUpdate, sess)
	} else {
		delete(s.sessions, sessionID)
		s.notifyChange(OperationDelete, &Session{ID: sessionID})
	}
	s.mu.Unlock()

	s.Persist()
	return nil
}

func (s *FileStore) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	return s.update(ctx, sessionID, func(sess *Session) {
		sess.Messages = append(sess.Messages, msg)
	})
}

func (s *FileStore) SetMessages(ctx context.Context, sessionID string, messages []Message) error {
	return s.update(ctx, sessionID, func(sess *Session) {
		sess.Messages = append([]Message{}, messages...)
	})
}

func (s *FileStore) UpdateTitle(ctx context.Context, sessionID string, title string) error {
	return s.update(ctx, sessionID, func(sess *Session) {
		sess.Title = title
	})
}

func (s *FileStore) UpdateConfig(ctx context.Context, sessionID string, cfg map[string]any) error {
	return s.update(ctx, sessionID, func(sess *Session) {
		sess.Config = maps.Clone(cfg)
	})
}

func (s *FileStore) update(ctx context.Context, sessionID string, mutate func(*Session)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	mutate(sess)
	sess.UpdatedAt = Now()
	s.notifyChange(OperationUpdate, sess)
	s.mu.Unlock()

	s.Persist()
	return nil
}
