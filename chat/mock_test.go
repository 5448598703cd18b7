package chat

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/deepchat/server/config"
	"github.com/deepchat/server/session"
	"github.com/deepchat/server/upstream"
)

type fakeStream struct {
	chunks []upstream.Chunk
	err    error

	mu     sync.Mutex
	pos    int
	closed bool
}

func (s *fakeStream) Next(ctx context.Context) (upstream.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return upstream.Chunk{}, io.ErrClosedPipe
	}
	if err := ctx.Err(); err != nil {
		return upstream.Chunk{}, err
	}
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return upstream.Chunk{}, s.err
	}
	return upstream.Chunk{}, io.EOF
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeClient struct {
	stream  *fakeStream
	openErr error

	mu       sync.Mutex
	requests []upstream.Request
}

func (c *fakeClient) Open(ctx context.Context, req upstream.Request) (upstream.Stream, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

func (c *fakeClient) lastRequest() upstream.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

type staticConfig struct {
	cfg config.Config
}

func (s staticConfig) Get() config.Config { return s.cfg }

type recordedOutcome struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordedOutcome) RecordTurn(_ context.Context, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newTestStore(t *testing.T) (*session.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := session.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

// eventLog collects emitted events. failAt makes the n-th emit (1-based)
// fail as if the caller had disconnected.
type eventLog struct {
	events []Event
	failAt int
}

func (l *eventLog) emit(ctx context.Context, ev Event) error {
	if l.failAt > 0 && len(l.events)+1 == l.failAt {
		return io.ErrClosedPipe
	}
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) types() []EventType {
	types := make([]EventType, len(l.events))
	for i, ev := range l.events {
		types[i] = ev.Type
	}
	return types
}
